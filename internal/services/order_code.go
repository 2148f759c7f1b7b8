package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/hdstore/internal/models"
)

const orderCodePrefix = "HD"

// GenerateOrderCode returns the next order code for the given day, of the
// form HD-YYYYMMDD-NNNN. The sequence continues from the highest code
// already issued that day; a new day starts over at 0001. Zero-padding keeps
// lexicographic and numeric order aligned, so a descending sort on the code
// string finds the latest.
func GenerateOrderCode(tx *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", orderCodePrefix, now.Format("20060102"))

	var last models.Order
	seq := 1
	err := tx.Where("order_code LIKE ?", prefix+"%").
		Order("order_code desc").
		First(&last).Error
	if err == nil {
		seq = NextSequence(last.OrderCode)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	return FormatOrderCode(now, seq), nil
}

// NextSequence parses the sequence out of an order code and returns the
// following one. Unparseable codes restart the day's sequence at 1.
func NextSequence(lastCode string) int {
	parts := strings.Split(lastCode, "-")
	if len(parts) != 3 {
		return 1
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return 1
	}
	return n + 1
}

// FormatOrderCode renders an order code for the given day and sequence.
func FormatOrderCode(t time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", orderCodePrefix, t.Format("20060102"), seq)
}
