package testing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/demo-sequences/repository"
	"github.com/amirphl/demo-sequences/sequence"
	"gorm.io/gorm"
)

// Widget is a record type with one column of each kind a sequence may fill
type Widget struct {
	ID                   uint       `gorm:"primaryKey"`
	IntegerColumn        int64      `gorm:"index"`
	StringColumn         string     `gorm:"size:255;index"`
	TextColumn           string     `gorm:"type:text"`
	DateColumn           *time.Time `gorm:"type:date"`
	EncryptedColumnCrypt string     `gorm:"size:255"`
}

func (Widget) TableName() string { return "widgets" }

// DummyUser is a soft-deletable record type used by generation scenarios
type DummyUser struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"size:255;uniqueIndex"`
	Name      string `gorm:"size:255"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (DummyUser) TableName() string { return "dummy_users" }

// Encrypt is the reversible transform applied to encrypted_column before it is stored
func Encrypt(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+13)%26
		}
		return r
	}, s)
}

// NewWidgetEntity exposes widgets to sequences with the aliases and the encrypted
// accessor the table is queried through
func NewWidgetEntity(db *gorm.DB) (*repository.EntityRepositoryImpl, error) {
	encrypted := repository.NewColumnFinder(db, Widget{}.TableName(), "encrypted_column_crypt")

	return repository.NewEntity(db, &Widget{},
		repository.WithAlias("integer_aliased", "integer_column"),
		repository.WithAlias("name_aliased", "string_column"),
		repository.WithAlias("encrypted_column", "encrypted_column_crypt"),
		repository.WithFinder("encrypted_column", sequence.FinderFunc(func(ctx context.Context, value any) (bool, error) {
			return encrypted.Exists(ctx, Encrypt(fmt.Sprint(value)))
		})),
	)
}

// NewDummyUserEntity exposes dummy users to sequences
func NewDummyUserEntity(db *gorm.DB) (*repository.EntityRepositoryImpl, error) {
	return repository.NewEntity(db, &DummyUser{})
}

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateWidget inserts a widget. EncryptedColumnCrypt is given in plain text and
// stored encrypted.
func (tf *TestFixtures) CreateWidget(widget Widget) (*Widget, error) {
	widget.EncryptedColumnCrypt = Encrypt(widget.EncryptedColumnCrypt)
	if err := tf.DB.DB.Create(&widget).Error; err != nil {
		return nil, fmt.Errorf("failed to create widget: %w", err)
	}
	return &widget, nil
}

// CreateWidgetsWithIntegers inserts one widget per integer_column value
func (tf *TestFixtures) CreateWidgetsWithIntegers(values ...int64) error {
	for _, v := range values {
		if _, err := tf.CreateWidget(Widget{IntegerColumn: v}); err != nil {
			return err
		}
	}
	return nil
}

// CreateDummyUser inserts a dummy user
func (tf *TestFixtures) CreateDummyUser(email, name string) (*DummyUser, error) {
	user := &DummyUser{Email: email, Name: name}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create dummy user: %w", err)
	}
	return user, nil
}
