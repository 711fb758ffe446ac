// Создаёт первого администратора. Пароль печатается один раз.
//
//	go run ./cmd/seed-admin -email admin@example.com -name "Администратор"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/evn/dstracker/config"
	"github.com/evn/dstracker/db"
	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/repositories"
	"github.com/evn/dstracker/internal/services/staff"
)

func main() {
	email := flag.String("email", "", "admin email")
	name := flag.String("name", "Администратор", "admin display name")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	cfg := config.NewConfig()
	database := db.InitDB(cfg.DatabaseDSN)
	defer database.Close()

	svc := staff.NewEmployeeService(repositories.NewUserRepository(database))
	created, err := svc.CreateEmployee(context.Background(), models.EmployeeInput{
		Email:   *email,
		Name:    *name,
		IsAdmin: true,
	})
	if err != nil {
		log.Fatalf("❌ Create admin: %v", err)
	}

	fmt.Printf("Admin %s created, id=%s\nTemporary password: %s\n", created.User.Email, created.User.ID, created.TempPassword)
}
