package handlers

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func TestShippingScope(t *testing.T) {
	current := uuid.New()
	other := uuid.New()

	tests := []struct {
		name       string
		requested  string
		want       uuid.UUID
		wantStatus int // 0 means allowed
	}{
		{
			name:      "blank param defaults to the token subject",
			requested: "",
			want:      current,
		},
		{
			name:      "param naming the token subject",
			requested: current.String(),
			want:      current,
		},
		{
			name:       "param naming another customer",
			requested:  other.String(),
			wantStatus: fiber.StatusForbidden,
		},
		{
			name:       "unparseable param",
			requested:  "not-a-uuid",
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shippingScope(tt.requested, current)

			if tt.wantStatus == 0 {
				if err != nil {
					t.Fatalf("shippingScope: %v", err)
				}
				if got != tt.want {
					t.Fatalf("scope = %s, want %s", got, tt.want)
				}
				return
			}

			var fiberErr *fiber.Error
			if !errors.As(err, &fiberErr) {
				t.Fatalf("err = %v, want *fiber.Error", err)
			}
			if fiberErr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", fiberErr.Code, tt.wantStatus)
			}
		})
	}
}
