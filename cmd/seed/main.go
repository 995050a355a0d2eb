package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/course"
	"rollcall/internal/enrollment"
	"rollcall/internal/logger"
	"rollcall/internal/store"
	"rollcall/internal/users"
)

// Seed creates a demo dataset: an admin, a lecturer with one course, and two
// students (one per level) enrolled in it.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(db.Client, log); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	ctx := context.Background()
	userRepo := users.NewRepository(db.Client)
	courseRepo := course.NewRepository(db.Client)
	enrollRepo := enrollment.NewRepository(db.Client)

	mustUser := func(u users.User, password string) users.User {
		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Fatal("hash failed", zap.Error(err))
		}
		u.PasswordHash = hash
		created, err := userRepo.Create(ctx, u)
		if err != nil {
			if existing, lookupErr := userRepo.ByEmail(ctx, u.Email); lookupErr == nil {
				log.Info("user already seeded", zap.String("email", u.Email))
				return existing
			}
			log.Fatal("seed user failed", zap.String("email", u.Email), zap.Error(err))
		}
		log.Info("user created", zap.String("email", created.Email), zap.String("role", string(created.Role)))
		return created
	}

	mustUser(users.User{
		Name:  "System Administrator",
		Email: "admin@example.com",
		Role:  auth.RoleAdmin,
	}, "admin123")

	lecturer := mustUser(users.User{
		Name:       "Grace Okafor",
		Email:      "g.okafor@example.com",
		Role:       auth.RoleLecturer,
		Department: "Computer Science",
	}, "lecturer123")

	s300 := mustUser(users.User{
		Name:         "Tunde Adeyemi",
		Email:        "t.adeyemi@example.com",
		Role:         auth.RoleStudent,
		Department:   "Computer Science",
		MatricNumber: "CSC/2022/014",
		Level:        "300",
	}, "student123")

	mustUser(users.User{
		Name:         "Amina Bello",
		Email:        "a.bello@example.com",
		Role:         auth.RoleStudent,
		Department:   "Computer Science",
		MatricNumber: "CSC/2023/041",
		Level:        "200",
	}, "student123")

	crs, err := courseRepo.Create(ctx, course.Course{
		Code:       "CS301",
		Name:       "Operating Systems",
		Department: "Computer Science",
		Semester:   "FIRST",
	})
	if err != nil {
		log.Warn("course already seeded", zap.Error(err))
		list, listErr := courseRepo.List(ctx)
		if listErr != nil || len(list) == 0 {
			log.Fatal("seed course failed", zap.Error(err))
		}
		crs = list[0]
	} else {
		log.Info("course created", zap.String("code", crs.Code))
	}

	if err := courseRepo.SetLecturers(ctx, crs.ID, []string{lecturer.ID}); err != nil {
		log.Fatal("assign lecturer failed", zap.Error(err))
	}
	if err := enrollRepo.Enroll(ctx, s300.ID, crs.ID, false); err != nil {
		log.Fatal("enroll failed", zap.Error(err))
	}

	log.Info("seed complete", zap.String("admin_login", "admin@example.com / admin123"))
}
