package model

// Subject 科目表 — 对应 subjects（创建后不可变）
type Subject struct {
	SubjectID int64  `gorm:"column:subject_id;primaryKey;autoIncrement" json:"subject_id"`
	Code      string `gorm:"type:varchar(50);not null"                  json:"code"`
	Name      string `gorm:"type:varchar(200);not null"                 json:"name"`
	BaseModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }

// Classroom 教室表 — 对应 classrooms（创建后不可变）
type Classroom struct {
	ClassroomID int64  `gorm:"column:classroom_id;primaryKey;autoIncrement" json:"classroom_id"`
	Code        string `gorm:"type:varchar(50);not null"                    json:"code"`
	Capacity    int    `gorm:"not null"                                     json:"capacity"`
	BaseModel
}

// TableName 指定表名
func (Classroom) TableName() string { return "classrooms" }
