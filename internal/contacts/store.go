// Package contacts stores the peers a user can connect to.
package contacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/omochice/peerchat/internal/chat"
)

// ErrNotFound is returned when no contact has the requested name.
var ErrNotFound = errors.New("contact not found")

// Contact is one entry of the contact book.
type Contact struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"uniqueIndex;not null"`
	Address string `gorm:"not null"`
	Port    int
}

// Endpoint returns where to reach the contact.
func (c Contact) Endpoint() chat.Endpoint {
	return chat.Endpoint{Name: c.Name, Address: c.Address, Port: c.Port}
}

// Store is a contact book backed by SQLite.
type Store struct {
	DB *gorm.DB
}

// Open opens or creates the contact book at path. Use ":memory:" for a
// throwaway book.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening contacts database: %w", err)
	}
	if err := db.AutoMigrate(&Contact{}); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Add inserts c or replaces the contact with the same name.
func (s *Store) Add(c Contact) error {
	if c.Port == 0 {
		c.Port = chat.DefaultPort
	}
	if err := c.Endpoint().Validate(); err != nil {
		return fmt.Errorf("invalid contact %q: %w", c.Name, err)
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("contact name is empty")
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"address", "port"}),
	}).Create(&c).Error
}

// Get returns the contact called name.
func (s *Store) Get(name string) (Contact, error) {
	var c Contact
	err := s.DB.Where("name = ?", name).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Contact{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return c, err
}

// List returns every contact ordered by name.
func (s *Store) List() ([]Contact, error) {
	var cs []Contact
	err := s.DB.Order("name").Find(&cs).Error
	return cs, err
}

// Remove deletes the contact called name.
func (s *Store) Remove(name string) error {
	res := s.DB.Where("name = ?", name).Delete(&Contact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return nil
}

// ImportCSV adds every name,address[,port] row of r and returns how many
// contacts were added. Blank rows are skipped and a missing port means
// the default port.
func (s *Store) ImportCSV(r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	added := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return added, nil
		}
		if err != nil {
			return added, fmt.Errorf("reading contacts: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 2 {
			return added, fmt.Errorf("line %d: want name,address[,port]", line)
		}

		c := Contact{Name: strings.TrimSpace(rec[0]), Address: strings.TrimSpace(rec[1])}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			port, err := strconv.Atoi(strings.TrimSpace(rec[2]))
			if err != nil {
				return added, fmt.Errorf("line %d: bad port: %w", line, err)
			}
			c.Port = port
		}
		if err := s.Add(c); err != nil {
			return added, fmt.Errorf("line %d: %w", line, err)
		}
		added++
	}
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
