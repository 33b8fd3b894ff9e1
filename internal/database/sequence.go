package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"subtrack-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FormatSequence renders n as PREFIX-0001
func FormatSequence(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// ParseSequence returns the numeric suffix of a PREFIX-NNNN number
func ParseSequence(prefix, number string) (int, bool) {
	suffix, ok := strings.CutPrefix(number, prefix+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextSequence issues the next business number for prefix. It must run inside
// the caller's transaction: the counter row stays locked until that commits.
// On first use the counter is seeded from the highest number already stored in
// column of model. The unique index on column remains the final guard; a
// collision comes back as gorm.ErrDuplicatedKey.
func NextSequence(tx *gorm.DB, prefix string, model interface{}, column string) (string, error) {
	var counter models.SequenceCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ?", prefix).
		Take(&counter).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		last, err := maxSequence(tx, prefix, model, column)
		if err != nil {
			return "", err
		}
		counter = models.SequenceCounter{Prefix: prefix, Value: last}
		if err := tx.Create(&counter).Error; err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	}

	counter.Value++
	if err := tx.Model(&counter).Update("value", counter.Value).Error; err != nil {
		return "", err
	}

	return FormatSequence(prefix, counter.Value), nil
}

func maxSequence(tx *gorm.DB, prefix string, model interface{}, column string) (int, error) {
	var numbers []string
	if err := tx.Model(model).Where(column+" LIKE ?", prefix+"-%").Pluck(column, &numbers).Error; err != nil {
		return 0, err
	}

	last := 0
	for _, number := range numbers {
		if n, ok := ParseSequence(prefix, number); ok && n > last {
			last = n
		}
	}
	return last, nil
}
