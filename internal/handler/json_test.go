package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/petpals/internal/engine"
	"github.com/dukerupert/petpals/internal/ledger"
	"github.com/dukerupert/petpals/internal/quest"
)

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get pet: %w", engine.ErrPetNotFound), http.StatusNotFound},
		{fmt.Errorf("spend: %w", ledger.ErrInsufficientBalance), http.StatusConflict},
		{engine.ErrPetAsleep, http.StatusConflict},
		{fmt.Errorf("earn: %w", quest.ErrInvalidActivity), http.StatusBadRequest},
		{ledger.ErrNegativeAmount, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, slog.Default(), "do thing", tt.err)
		if rec.Code != tt.want {
			t.Errorf("writeError(%v) = %d, want %d", tt.err, rec.Code, tt.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
	}
}

func TestDecodeValidates(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"ok", `{"item_id":"hat","cost":5}`, ""},
		{"bad json", `{"item_id":`, "invalid JSON"},
		{"missing item", `{"cost":5}`, "itemid is required"},
		{"slash in item", `{"item_id":"a/b","cost":5}`, "itemid must satisfy excludesall=/"},
		{"negative cost", `{"item_id":"hat","cost":-1}`, "cost must satisfy gte=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v purchaseRequest
			err := decode(req, &v)
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
