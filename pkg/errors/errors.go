package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

func pgCode(err error) (string, string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

// IsUniqueViolation 判断是否为唯一约束冲突；constraint 非空时同时匹配约束名
func IsUniqueViolation(err error, constraint string) bool {
	code, name, ok := pgCode(err)
	if !ok || code != codeUniqueViolation {
		return false
	}
	return constraint == "" || name == constraint
}

// IsCheckViolation 判断是否为 CHECK 约束冲突
func IsCheckViolation(err error) bool {
	code, _, ok := pgCode(err)
	return ok && code == codeCheckViolation
}

// IsForeignKeyViolation 判断是否为外键约束冲突
func IsForeignKeyViolation(err error) bool {
	code, _, ok := pgCode(err)
	return ok && code == codeForeignKeyViolation
}

// IsLockNotAvailable 判断是否为锁等待超时或锁不可用
func IsLockNotAvailable(err error) bool {
	code, _, ok := pgCode(err)
	return ok && code == codeLockNotAvailable
}

// IsTransient 判断错误是否属于可由调用方重试的事务竞争类错误
// （锁超时、死锁、序列化失败、语句被取消）
func IsTransient(err error) bool {
	if IsLockNotAvailable(err) {
		return true
	}
	code, _, ok := pgCode(err)
	if !ok {
		return false
	}
	switch code {
	case codeSerializationFailure, codeDeadlockDetected, codeQueryCanceled:
		return true
	}
	return false
}
