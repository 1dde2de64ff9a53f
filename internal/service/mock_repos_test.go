package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"shiksha-grid/internal/model"
	"shiksha-grid/internal/repository"
	pkgredis "shiksha-grid/pkg/redis"
)

// ═══════════════════════════════════════════════════════════
// 内存存储：所有 mock repository 共享一份数据
//
// txMu 模拟行锁：一个事务从开始到提交/回滚独占整个存储，
// 比真实的行锁更粗，但足以验证容量与原子性。
// dataMu 保护单次 map 读写，使事务外的只读查询可以并发进行。
// ═══════════════════════════════════════════════════════════

type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex

	nextID      int64
	users       map[int64]*model.User
	students    map[int64]*model.Student
	teachers    map[int64]*model.Teacher
	subjects    map[int64]*model.Subject
	classrooms  map[int64]*model.Classroom
	slots       map[int64]*model.Slot
	enrollments map[int64]*model.Enrollment

	// 故障注入
	failEnrollmentCreate error
	failIncrement        error
	failStudentCreate    error
	lockErr              error
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[int64]*model.User),
		students:    make(map[int64]*model.Student),
		teachers:    make(map[int64]*model.Teacher),
		subjects:    make(map[int64]*model.Subject),
		classrooms:  make(map[int64]*model.Classroom),
		slots:       make(map[int64]*model.Slot),
		enrollments: make(map[int64]*model.Enrollment),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// ── 快照 / 回滚 ──

type memSnapshot struct {
	nextID      int64
	users       map[int64]model.User
	students    map[int64]model.Student
	teachers    map[int64]model.Teacher
	subjects    map[int64]model.Subject
	classrooms  map[int64]model.Classroom
	slots       map[int64]model.Slot
	enrollments map[int64]model.Enrollment
}

func copyMap[T any](src map[int64]*T) map[int64]T {
	dst := make(map[int64]T, len(src))
	for k, v := range src {
		dst[k] = *v
	}
	return dst
}

func restoreMap[T any](src map[int64]T) map[int64]*T {
	dst := make(map[int64]*T, len(src))
	for k, v := range src {
		v := v
		dst[k] = &v
	}
	return dst
}

func (s *memStore) snapshot() *memSnapshot {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return &memSnapshot{
		nextID:      s.nextID,
		users:       copyMap(s.users),
		students:    copyMap(s.students),
		teachers:    copyMap(s.teachers),
		subjects:    copyMap(s.subjects),
		classrooms:  copyMap(s.classrooms),
		slots:       copyMap(s.slots),
		enrollments: copyMap(s.enrollments),
	}
}

func (s *memStore) restore(snap *memSnapshot) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.nextID = snap.nextID
	s.users = restoreMap(snap.users)
	s.students = restoreMap(snap.students)
	s.teachers = restoreMap(snap.teachers)
	s.subjects = restoreMap(snap.subjects)
	s.classrooms = restoreMap(snap.classrooms)
	s.slots = restoreMap(snap.slots)
	s.enrollments = restoreMap(snap.enrollments)
}

// ── Mock Transactor ──

type mockTransactor struct {
	store *memStore
	calls int
}

func (m *mockTransactor) Transaction(_ context.Context, fn func(txRepo *repository.Repository) error) (err error) {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()
	m.calls++

	snap := m.store.snapshot()
	defer func() {
		if r := recover(); r != nil {
			m.store.restore(snap)
			panic(r)
		}
	}()

	if err = fn(newMockRepository(m.store, m)); err != nil {
		m.store.restore(snap)
	}
	return err
}

// newMockRepository 构建基于内存存储的 Repository 聚合
func newMockRepository(store *memStore, tx *mockTransactor) *repository.Repository {
	if tx == nil {
		tx = &mockTransactor{store: store}
	}
	return &repository.Repository{
		Tx:         tx,
		User:       &mockUserRepo{s: store},
		Student:    &mockStudentRepo{s: store},
		Teacher:    &mockTeacherRepo{s: store},
		Subject:    &mockSubjectRepo{s: store},
		Classroom:  &mockClassroomRepo{s: store},
		Slot:       &mockSlotRepo{s: store},
		Enrollment: &mockEnrollmentRepo{s: store},
	}
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return uniqueViolation("uk_users_email")
		}
	}
	user.UserID = m.s.id()
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ s *memStore }

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if m.s.failStudentCreate != nil {
		return m.s.failStudentCreate
	}
	student.StudentID = m.s.id()
	cp := *student
	cp.User = nil
	m.s.students[student.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) get(id int64) (*model.Student, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if st, ok := m.s.students[id]; ok {
		cp := *st
		if u, ok := m.s.users[st.UserID]; ok {
			uc := *u
			cp.User = &uc
		}
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByID(_ context.Context, id int64) (*model.Student, error) {
	return m.get(id)
}

func (m *mockStudentRepo) GetByUserID(_ context.Context, userID int64) (*model.Student, error) {
	m.s.dataMu.Lock()
	var found int64
	for _, st := range m.s.students {
		if st.UserID == userID {
			found = st.StudentID
		}
	}
	m.s.dataMu.Unlock()
	if found == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return m.get(found)
}

func (m *mockStudentRepo) GetByIDForUpdate(_ context.Context, id int64) (*model.Student, error) {
	if m.s.lockErr != nil {
		return nil, m.s.lockErr
	}
	return m.get(id)
}

// ── Mock TeacherRepository ──

type mockTeacherRepo struct{ s *memStore }

func (m *mockTeacherRepo) Create(_ context.Context, teacher *model.Teacher) error {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	teacher.TeacherID = m.s.id()
	cp := *teacher
	cp.User = nil
	m.s.teachers[teacher.TeacherID] = &cp
	return nil
}

// withUser 调用方须持有 dataMu
func (m *mockTeacherRepo) withUser(t *model.Teacher) model.Teacher {
	cp := *t
	if u, ok := m.s.users[t.UserID]; ok {
		uc := *u
		cp.User = &uc
	}
	return cp
}

func (m *mockTeacherRepo) GetByID(_ context.Context, id int64) (*model.Teacher, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if t, ok := m.s.teachers[id]; ok {
		cp := m.withUser(t)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) GetByUserID(_ context.Context, userID int64) (*model.Teacher, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	for _, t := range m.s.teachers {
		if t.UserID == userID {
			cp := m.withUser(t)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) List(_ context.Context) ([]model.Teacher, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	result := make([]model.Teacher, 0, len(m.s.teachers))
	for _, t := range m.s.teachers {
		result = append(result, m.withUser(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TeacherID < result[j].TeacherID })
	return result, nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct{ s *memStore }

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	for _, sub := range m.s.subjects {
		if sub.Code == subject.Code {
			return uniqueViolation("uk_subjects_code")
		}
	}
	subject.SubjectID = m.s.id()
	cp := *subject
	m.s.subjects[subject.SubjectID] = &cp
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id int64) (*model.Subject, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if sub, ok := m.s.subjects[id]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetByCode(_ context.Context, code string) (*model.Subject, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	for _, sub := range m.s.subjects {
		if sub.Code == code {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context) ([]model.Subject, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	result := make([]model.Subject, 0, len(m.s.subjects))
	for _, sub := range m.s.subjects {
		result = append(result, *sub)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// ── Mock ClassroomRepository ──

type mockClassroomRepo struct{ s *memStore }

func (m *mockClassroomRepo) Create(_ context.Context, classroom *model.Classroom) error {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	for _, c := range m.s.classrooms {
		if c.Code == classroom.Code {
			return uniqueViolation("uk_classrooms_code")
		}
	}
	classroom.ClassroomID = m.s.id()
	cp := *classroom
	m.s.classrooms[classroom.ClassroomID] = &cp
	return nil
}

func (m *mockClassroomRepo) GetByID(_ context.Context, id int64) (*model.Classroom, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if c, ok := m.s.classrooms[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassroomRepo) GetByCode(_ context.Context, code string) (*model.Classroom, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	for _, c := range m.s.classrooms {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassroomRepo) List(_ context.Context) ([]model.Classroom, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	result := make([]model.Classroom, 0, len(m.s.classrooms))
	for _, c := range m.s.classrooms {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// ── Mock SlotRepository ──

type mockSlotRepo struct{ s *memStore }

func (m *mockSlotRepo) Create(_ context.Context, slot *model.Slot) error {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	slot.SlotID = m.s.id()
	cp := *slot
	cp.Subject, cp.Teacher, cp.Classroom = nil, nil, nil
	m.s.slots[slot.SlotID] = &cp
	return nil
}

// detail 附带关联，调用方须持有 dataMu
func (m *mockSlotRepo) detail(sl *model.Slot) model.Slot {
	cp := *sl
	if sub, ok := m.s.subjects[sl.SubjectID]; ok {
		sc := *sub
		cp.Subject = &sc
	}
	if t, ok := m.s.teachers[sl.TeacherID]; ok {
		tc := (&mockTeacherRepo{s: m.s}).withUser(t)
		cp.Teacher = &tc
	}
	if sl.ClassroomID != nil {
		if c, ok := m.s.classrooms[*sl.ClassroomID]; ok {
			cc := *c
			cp.Classroom = &cc
		}
	}
	return cp
}

func (m *mockSlotRepo) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if sl, ok := m.s.slots[id]; ok {
		cp := m.detail(sl)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSlotRepo) GetByIDForUpdate(_ context.Context, id int64) (*model.Slot, error) {
	if m.s.lockErr != nil {
		return nil, m.s.lockErr
	}
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if sl, ok := m.s.slots[id]; ok {
		cp := *sl
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSlotRepo) sorted(filter func(*model.Slot) bool) []model.Slot {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	result := make([]model.Slot, 0, len(m.s.slots))
	for _, sl := range m.s.slots {
		if filter == nil || filter(sl) {
			result = append(result, m.detail(sl))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.SlotID < b.SlotID
	})
	return result
}

func (m *mockSlotRepo) List(_ context.Context) ([]model.Slot, error) {
	return m.sorted(nil), nil
}

func (m *mockSlotRepo) ListByTeacher(_ context.Context, teacherID int64) ([]model.Slot, error) {
	return m.sorted(func(sl *model.Slot) bool { return sl.TeacherID == teacherID }), nil
}

func (m *mockSlotRepo) IncrementEnrollment(_ context.Context, id int64) error {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if m.s.failIncrement != nil {
		return m.s.failIncrement
	}
	sl, ok := m.s.slots[id]
	if !ok || sl.CurrentEnrollment >= sl.MaxCapacity {
		return repository.ErrSlotCounterGuard
	}
	sl.CurrentEnrollment++
	return nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct{ s *memStore }

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	if m.s.failEnrollmentCreate != nil {
		return m.s.failEnrollmentCreate
	}
	for _, e := range m.s.enrollments {
		if e.StudentID == enrollment.StudentID && e.SubjectID == enrollment.SubjectID {
			return uniqueViolation("uk_enrollments_student_subject")
		}
	}
	enrollment.EnrollmentID = m.s.id()
	cp := *enrollment
	cp.Slot = nil
	m.s.enrollments[enrollment.EnrollmentID] = &cp
	return nil
}

func (m *mockEnrollmentRepo) ListByStudent(_ context.Context, studentID int64) ([]model.Enrollment, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	slots := &mockSlotRepo{s: m.s}
	var result []model.Enrollment
	for _, e := range m.s.enrollments {
		if e.StudentID != studentID {
			continue
		}
		cp := *e
		if sl, ok := m.s.slots[e.SlotID]; ok {
			sc := slots.detail(sl)
			cp.Slot = &sc
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EnrollmentID < result[j].EnrollmentID })
	return result, nil
}

func (m *mockEnrollmentRepo) CountBySlot(_ context.Context, slotID int64) (int64, error) {
	m.s.dataMu.Lock()
	defer m.s.dataMu.Unlock()
	var n int64
	for _, e := range m.s.enrollments {
		if e.SlotID == slotID {
			n++
		}
	}
	return n, nil
}

// ── Mock Cache ──

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (c *mockCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return pkgredis.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *mockCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.deletes++
	return nil
}

func (c *mockCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// ── 测试数据构造 ──

type seedIDs struct {
	studentA, studentB int64
	teacher            int64
	room               int64
}

// seedBase 创建两名学生、一名教师、一间教室
func seedBase(store *memStore) seedIDs {
	store.dataMu.Lock()
	defer store.dataMu.Unlock()

	var ids seedIDs
	mkUser := func(name, email, role string) int64 {
		id := store.id()
		store.users[id] = &model.User{UserID: id, FullName: name, Email: email, Role: role, PasswordHash: "x"}
		return id
	}
	for i, p := range []*int64{&ids.studentA, &ids.studentB} {
		uid := mkUser("Student", []string{"a@test.local", "b@test.local"}[i], model.RoleStudent)
		sid := store.id()
		store.students[sid] = &model.Student{StudentID: sid, UserID: uid, RollNo: []string{"R0001", "R0002"}[i], Batch: "CE-5"}
		*p = sid
	}
	tuid := mkUser("Teacher T", "t@test.local", model.RoleTeacher)
	ids.teacher = store.id()
	store.teachers[ids.teacher] = &model.Teacher{TeacherID: ids.teacher, UserID: tuid, Department: "CE"}
	ids.room = store.id()
	store.classrooms[ids.room] = &model.Classroom{ClassroomID: ids.room, Code: "R101", Capacity: 60}
	return ids
}

// addSubject 创建科目并返回 ID
func addSubject(store *memStore, code string) int64 {
	store.dataMu.Lock()
	defer store.dataMu.Unlock()
	id := store.id()
	store.subjects[id] = &model.Subject{SubjectID: id, Code: code, Name: "Subject " + code}
	return id
}

// addSlot 创建时段并返回 ID
func addSlot(store *memStore, subjectID, teacherID int64, day int, start, end string, capacity, current int) int64 {
	store.dataMu.Lock()
	defer store.dataMu.Unlock()
	id := store.id()
	store.slots[id] = &model.Slot{
		SlotID: id, SubjectID: subjectID, TeacherID: teacherID,
		DayOfWeek: day, StartTime: start, EndTime: end,
		MaxCapacity: capacity, CurrentEnrollment: current,
	}
	return id
}

func slotCount(store *memStore, id int64) int {
	store.dataMu.Lock()
	defer store.dataMu.Unlock()
	return store.slots[id].CurrentEnrollment
}

func enrollmentCount(store *memStore) int {
	store.dataMu.Lock()
	defer store.dataMu.Unlock()
	return len(store.enrollments)
}
