package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"shiksha-grid/internal/model"
	pkgerrors "shiksha-grid/pkg/errors"
)

func setupTestEnrollmentService() (EnrollmentService, *memStore, *mockCache, seedIDs) {
	store := newMemStore()
	ids := seedBase(store)
	cache := newMockCache()
	svc := NewEnrollmentService(newMockRepository(store, nil), cache, zap.NewNop())
	return svc, store, cache, ids
}

func addStudent(store *memStore, n int) int64 {
	store.dataMu.Lock()
	defer store.dataMu.Unlock()
	uid := store.id()
	store.users[uid] = &model.User{UserID: uid, FullName: "S", Email: fmt.Sprintf("s%d@test.local", n), Role: model.RoleStudent}
	sid := store.id()
	store.students[sid] = &model.Student{StudentID: sid, UserID: uid, RollNo: fmt.Sprintf("X%04d", n)}
	return sid
}

// assertCounterConsistent 校验计数器与选课记录数一致
func assertCounterConsistent(t *testing.T, store *memStore) {
	t.Helper()
	store.dataMu.Lock()
	defer store.dataMu.Unlock()
	counts := make(map[int64]int)
	for _, e := range store.enrollments {
		counts[e.SlotID]++
	}
	for id, sl := range store.slots {
		if sl.CurrentEnrollment != counts[id] {
			t.Errorf("时段 %d 计数 %d 与选课记录数 %d 不一致", id, sl.CurrentEnrollment, counts[id])
		}
		if sl.CurrentEnrollment < 0 || sl.CurrentEnrollment > sl.MaxCapacity {
			t.Errorf("时段 %d 计数 %d 越界 (max=%d)", id, sl.CurrentEnrollment, sl.MaxCapacity)
		}
	}
}

// ── 基本成功路径 ──

func TestEnroll_Success(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	sub := addSubject(store, "SE")
	slot := addSlot(store, sub, ids.teacher, 1, "09:00", "10:00", 30, 0)

	resp, err := svc.Enroll(context.Background(), ids.studentA, slot)
	if err != nil {
		t.Fatalf("期望选课成功，实际: %v", err)
	}
	if resp.SlotID != slot || resp.SubjectID != sub || resp.StudentID != ids.studentA {
		t.Errorf("返回记录不匹配: %+v", resp)
	}
	if resp.Slot == nil || resp.Slot.CurrentEnrollment != 1 {
		t.Errorf("期望返回递增后的时段计数 1，实际: %+v", resp.Slot)
	}
	if got := slotCount(store, slot); got != 1 {
		t.Errorf("期望计数为 1，实际: %d", got)
	}
	assertCounterConsistent(t, store)
}

// ── Scenario A：容量为 1，两名学生并发 ──

func TestEnroll_ScenarioA_LastSeat(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	sub := addSubject(store, "SE")
	slot := addSlot(store, sub, ids.teacher, 1, "09:00", "10:00", 1, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, student := range []int64{ids.studentA, ids.studentB} {
		wg.Add(1)
		go func(i int, student int64) {
			defer wg.Done()
			_, errs[i] = svc.Enroll(context.Background(), student, slot)
		}(i, student)
	}
	wg.Wait()

	success, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrSlotFull):
			full++
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if success != 1 || full != 1 {
		t.Errorf("期望 1 成功 1 满员，实际 成功=%d 满员=%d", success, full)
	}
	if got := slotCount(store, slot); got != 1 {
		t.Errorf("期望计数为 1，实际: %d", got)
	}
	assertCounterConsistent(t, store)
}

// ── Scenario B：时间冲突与首尾相接 ──

func TestEnroll_ScenarioB_TimeConflict(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	ctx := context.Background()

	first := addSlot(store, addSubject(store, "A"), ids.teacher, 1, "09:00", "11:00", 30, 0)
	overlap := addSlot(store, addSubject(store, "B"), ids.teacher, 1, "10:00", "12:00", 30, 0)
	touching := addSlot(store, addSubject(store, "C"), ids.teacher, 1, "11:00", "13:00", 30, 0)

	if _, err := svc.Enroll(ctx, ids.studentA, first); err != nil {
		t.Fatalf("首个选课失败: %v", err)
	}
	if _, err := svc.Enroll(ctx, ids.studentA, overlap); !errors.Is(err, ErrTimeConflict) {
		t.Errorf("期望 ErrTimeConflict，实际: %v", err)
	}
	if got := slotCount(store, overlap); got != 0 {
		t.Errorf("被拒绝的时段计数应保持 0，实际: %d", got)
	}
	if _, err := svc.Enroll(ctx, ids.studentA, touching); err != nil {
		t.Errorf("首尾相接不应冲突，实际: %v", err)
	}
	assertCounterConsistent(t, store)
}

// ── Scenario C：同科目不同时段 ──

func TestEnroll_ScenarioC_DuplicateSubject(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	ctx := context.Background()

	se := addSubject(store, "SE")
	x := addSlot(store, se, ids.teacher, 1, "09:00", "10:00", 30, 0)
	y := addSlot(store, se, ids.teacher, 3, "14:00", "15:00", 30, 0)

	if _, err := svc.Enroll(ctx, ids.studentA, x); err != nil {
		t.Fatalf("首个选课失败: %v", err)
	}
	if _, err := svc.Enroll(ctx, ids.studentA, y); !errors.Is(err, ErrDuplicateSubject) {
		t.Errorf("期望 ErrDuplicateSubject，实际: %v", err)
	}
	// 重复选同一时段同样按重复科目拒绝
	if _, err := svc.Enroll(ctx, ids.studentA, x); !errors.Is(err, ErrDuplicateSubject) {
		t.Errorf("重复选同一时段期望 ErrDuplicateSubject，实际: %v", err)
	}
	if got := slotCount(store, x); got != 1 {
		t.Errorf("期望计数仍为 1，实际: %d", got)
	}
	assertCounterConsistent(t, store)
}

// ── Scenario D：时段不存在 ──

func TestEnroll_ScenarioD_SlotNotFound(t *testing.T) {
	svc, _, _, ids := setupTestEnrollmentService()

	_, err := svc.Enroll(context.Background(), ids.studentA, 999)
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("期望 ErrSlotNotFound，实际: %v", err)
	}
	if IsRetryable(err) {
		t.Error("ErrSlotNotFound 不应可重试")
	}
}

func TestEnroll_StudentNotFound(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	slot := addSlot(store, addSubject(store, "SE"), ids.teacher, 1, "09:00", "10:00", 30, 0)

	if _, err := svc.Enroll(context.Background(), 424242, slot); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("期望 ErrStudentNotFound，实际: %v", err)
	}
}

func TestEnroll_SlotFull(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	slot := addSlot(store, addSubject(store, "SE"), ids.teacher, 1, "09:00", "10:00", 1, 0)

	if _, err := svc.Enroll(context.Background(), ids.studentA, slot); err != nil {
		t.Fatalf("首个选课失败: %v", err)
	}
	if _, err := svc.Enroll(context.Background(), ids.studentB, slot); !errors.Is(err, ErrSlotFull) {
		t.Errorf("期望 ErrSlotFull，实际: %v", err)
	}
}

// ── P1：N 个席位，M 个并发请求 ──

func TestEnroll_P1_CapacityUnderConcurrency(t *testing.T) {
	const capacity, attempts = 5, 40

	svc, store, _, ids := setupTestEnrollmentService()
	slot := addSlot(store, addSubject(store, "SE"), ids.teacher, 2, "09:00", "10:00", capacity, 0)

	students := make([]int64, attempts)
	for i := range students {
		students[i] = addStudent(store, i)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		full    int
	)
	for _, sid := range students {
		wg.Add(1)
		go func(sid int64) {
			defer wg.Done()
			_, err := svc.Enroll(context.Background(), sid, slot)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrSlotFull):
				full++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}(sid)
	}
	wg.Wait()

	if success != capacity {
		t.Errorf("期望恰好 %d 个成功，实际: %d", capacity, success)
	}
	if full != attempts-capacity {
		t.Errorf("期望 %d 个满员拒绝，实际: %d", attempts-capacity, full)
	}
	assertCounterConsistent(t, store)
}

// ── 同一学生并发选两个重叠时段：至多成功一个 ──

func TestEnroll_SameStudentConcurrentOverlap(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	a := addSlot(store, addSubject(store, "A"), ids.teacher, 4, "09:00", "11:00", 30, 0)
	b := addSlot(store, addSubject(store, "B"), ids.teacher, 4, "10:00", "12:00", 30, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, slot := range []int64{a, b} {
		wg.Add(1)
		go func(i int, slot int64) {
			defer wg.Done()
			_, errs[i] = svc.Enroll(context.Background(), ids.studentA, slot)
		}(i, slot)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrTimeConflict) {
			t.Errorf("期望 ErrTimeConflict，实际: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("期望恰好 1 个成功，实际: %d", ok)
	}
}

// ── P2 / P3 / P5：随机序列 ──

func TestEnroll_P2P3P5_RandomSequence(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	rng := rand.New(rand.NewSource(42))

	subjects := []int64{addSubject(store, "S1"), addSubject(store, "S2"), addSubject(store, "S3"), addSubject(store, "S4")}
	starts := []string{"08:00", "09:00", "10:00", "11:00", "12:00"}
	var slots []int64
	for i := 0; i < 30; i++ {
		si := rng.Intn(len(starts) - 1)
		ei := si + 1 + rng.Intn(len(starts)-1-si)
		slots = append(slots, addSlot(store, subjects[rng.Intn(len(subjects))], ids.teacher,
			1+rng.Intn(2), starts[si], starts[ei], 1+rng.Intn(3), 0))
	}
	students := []int64{ids.studentA, ids.studentB, addStudent(store, 100), addStudent(store, 101)}

	for i := 0; i < 200; i++ {
		_, err := svc.Enroll(context.Background(), students[rng.Intn(len(students))], slots[rng.Intn(len(slots))])
		if err != nil && !isRejection(err) {
			t.Fatalf("意外错误: %v", err)
		}
	}

	assertCounterConsistent(t, store)

	for _, sid := range students {
		list, _ := (&mockEnrollmentRepo{s: store}).ListByStudent(context.Background(), sid)
		seen := make(map[int64]bool)
		for i, e := range list {
			if seen[e.SubjectID] {
				t.Errorf("学生 %d 重复科目 %d", sid, e.SubjectID)
			}
			seen[e.SubjectID] = true
			for j := i + 1; j < len(list); j++ {
				other := list[j]
				if e.Slot.DayOfWeek != other.Slot.DayOfWeek {
					continue
				}
				if e.Slot.StartTime < other.Slot.EndTime && other.Slot.StartTime < e.Slot.EndTime {
					t.Errorf("学生 %d 时段 %d 与 %d 重叠", sid, e.SlotID, other.SlotID)
				}
			}
		}
	}
}

// ── P4：任何失败都不留下痕迹 ──

func TestEnroll_P4_AtomicOnInfrastructureFailure(t *testing.T) {
	cases := []struct {
		name   string
		inject func(s *memStore)
	}{
		{"递增失败", func(s *memStore) { s.failIncrement = errors.New("connection reset") }},
		{"写入失败", func(s *memStore) { s.failEnrollmentCreate = &pgconn.PgError{Code: "23514"} }},
		{"锁超时", func(s *memStore) { s.lockErr = &pgconn.PgError{Code: "55P03"} }},
		{"死锁", func(s *memStore) { s.lockErr = &pgconn.PgError{Code: "40P01"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _, ids := setupTestEnrollmentService()
			slot := addSlot(store, addSubject(store, "SE"), ids.teacher, 1, "09:00", "10:00", 5, 0)
			tc.inject(store)

			_, err := svc.Enroll(context.Background(), ids.studentA, slot)
			if !errors.Is(err, ErrTransactionFailed) {
				t.Fatalf("期望 ErrTransactionFailed，实际: %v", err)
			}
			if !IsRetryable(err) {
				t.Error("ErrTransactionFailed 应可重试")
			}
			if got := slotCount(store, slot); got != 0 {
				t.Errorf("失败后计数应为 0，实际: %d", got)
			}
			if n := enrollmentCount(store); n != 0 {
				t.Errorf("失败后不应有选课记录，实际: %d", n)
			}
		})
	}
}

func TestEnroll_TransactionFailedWrapsCause(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	slot := addSlot(store, addSubject(store, "SE"), ids.teacher, 1, "09:00", "10:00", 5, 0)
	store.lockErr = &pgconn.PgError{Code: "55P03"}

	_, err := svc.Enroll(context.Background(), ids.studentA, slot)
	if !pkgerrors.IsLockNotAvailable(err) {
		t.Errorf("期望保留底层锁超时错误，实际: %v", err)
	}
}

func TestEnroll_RejectionRollsBack(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	slot := addSlot(store, addSubject(store, "SE"), ids.teacher, 1, "09:00", "10:00", 1, 1)

	if _, err := svc.Enroll(context.Background(), ids.studentA, slot); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("期望 ErrSlotFull，实际: %v", err)
	}
	if got := slotCount(store, slot); got != 1 {
		t.Errorf("计数应保持 1，实际: %d", got)
	}
	if n := enrollmentCount(store); n != 0 {
		t.Errorf("不应写入选课记录，实际: %d", n)
	}
}

// ── 缓存失效 ──

func TestEnroll_InvalidatesSlotCache(t *testing.T) {
	svc, store, cache, ids := setupTestEnrollmentService()
	slot := addSlot(store, addSubject(store, "SE"), ids.teacher, 1, "09:00", "10:00", 5, 0)
	_ = cache.SetJSON(context.Background(), slotListCacheKey, []string{"stale"}, 0)

	if _, err := svc.Enroll(context.Background(), ids.studentA, slot); err != nil {
		t.Fatalf("选课失败: %v", err)
	}
	if cache.has(slotListCacheKey) {
		t.Error("选课成功后应清除时段列表缓存")
	}
}

func TestEnroll_RejectionKeepsCache(t *testing.T) {
	svc, _, cache, ids := setupTestEnrollmentService()
	_ = cache.SetJSON(context.Background(), slotListCacheKey, []string{"cached"}, 0)

	_, _ = svc.Enroll(context.Background(), ids.studentA, 999)
	if !cache.has(slotListCacheKey) {
		t.Error("选课失败不应清除缓存")
	}
}

// ── 读路径 ──

func TestListForStudent(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	ctx := context.Background()
	a := addSlot(store, addSubject(store, "A"), ids.teacher, 1, "09:00", "10:00", 5, 0)
	b := addSlot(store, addSubject(store, "B"), ids.teacher, 2, "09:00", "10:00", 5, 0)
	for _, slot := range []int64{a, b} {
		if _, err := svc.Enroll(ctx, ids.studentA, slot); err != nil {
			t.Fatalf("选课失败: %v", err)
		}
	}

	list, err := svc.ListForStudent(ctx, ids.studentA)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 条记录，实际: %d", len(list))
	}
	if list[0].Slot == nil || list[0].Slot.Subject.Code != "A" || list[0].Slot.Teacher.FullName != "Teacher T" {
		t.Errorf("期望携带时段详情，实际: %+v", list[0].Slot)
	}

	empty, err := svc.ListForStudent(ctx, ids.studentB)
	if err != nil || len(empty) != 0 {
		t.Errorf("期望空列表，实际: %v %v", empty, err)
	}

	if _, err := svc.ListForStudent(ctx, 999); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("期望 ErrStudentNotFound，实际: %v", err)
	}
}

func TestStudentIDForUser(t *testing.T) {
	svc, store, _, ids := setupTestEnrollmentService()
	st, _ := (&mockStudentRepo{s: store}).GetByID(context.Background(), ids.studentA)

	got, err := svc.StudentIDForUser(context.Background(), st.UserID)
	if err != nil || got != ids.studentA {
		t.Errorf("期望 %d，实际: %d %v", ids.studentA, got, err)
	}
	if _, err := svc.StudentIDForUser(context.Background(), 999); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("期望 ErrStudentNotFound，实际: %v", err)
	}
}
