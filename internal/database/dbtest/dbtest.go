// Package dbtest opens throwaway SQLite databases with the application schema
// for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jimdaga/interview-ace/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// New returns an in-memory database migrated with every model. Each call gets
// its own database.
func New(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.AuthIdentity{}, &models.Preparation{}, &models.ReportJob{}); err != nil {
		tb.Fatalf("failed to migrate sqlite: %v", err)
	}

	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user with the given email.
func CreateUser(tb testing.TB, db *gorm.DB, email string, premium bool) *models.User {
	tb.Helper()
	user := &models.User{Email: email, Name: email, IsPremium: premium}
	if err := db.Create(user).Error; err != nil {
		tb.Fatalf("failed to create user: %v", err)
	}
	return user
}
