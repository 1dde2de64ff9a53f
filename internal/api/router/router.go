package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shiksha-grid/config"
	"shiksha-grid/internal/api/handler"
	"shiksha-grid/internal/api/middleware"
	"shiksha-grid/internal/model"
	"shiksha-grid/pkg/jwt"
	"shiksha-grid/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流与 Token 黑名单降级为放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := handler.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("注册校验规则失败: %w", err)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	if cfg.Server.BodyLimitBytes > 0 {
		r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	admin := middleware.RoleAuth(model.RoleAdmin)
	teacher := middleware.RoleAuth(model.RoleTeacher)
	student := middleware.RoleAuth(model.RoleStudent)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login",
				middleware.RateLimit(rdb, cfg.Enrollment.RateLimit, cfg.Enrollment.RateWindow),
				h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 科目 / 教室
			authorized.GET("/subjects", h.Catalog.ListSubjects)
			authorized.POST("/subjects", admin, h.Catalog.CreateSubject)
			authorized.GET("/classrooms", h.Catalog.ListClassrooms)
			authorized.POST("/classrooms", admin, h.Catalog.CreateClassroom)

			// 教师模块
			teachers := authorized.Group("/teachers")
			{
				teachers.GET("", h.Teacher.ListTeachers)
				teachers.POST("", admin, h.Teacher.CreateTeacher)
				teachers.GET("/me/slots", teacher, h.Teacher.MySlots)
				teachers.GET("/:id/slots", admin, h.Teacher.TeacherSlots)
			}

			// 时段模块
			slots := authorized.Group("/slots")
			{
				slots.GET("", h.Slot.ListSlots)
				slots.GET("/timetable", h.Slot.Timetable)
				slots.GET("/export", admin, h.Export.ExportTimetable)
				slots.GET("/:id", h.Slot.GetSlot)
				slots.POST("", admin, h.Slot.CreateSlot)
			}

			// 选课模块
			enrollments := authorized.Group("/enrollments")
			{
				enrollments.POST("", student, h.Enrollment.Enroll)
				enrollments.GET("/me", student, h.Enrollment.MyEnrollments)
				enrollments.GET("/me/calendar", student, h.Export.ExportMyCalendar)
			}

			authorized.GET("/students/:id/enrollments", admin, h.Enrollment.StudentEnrollments)
		}
	}

	return r, nil
}
