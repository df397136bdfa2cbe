package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/petpals/internal/engine"
	"github.com/dukerupert/petpals/internal/ledger"
	"github.com/dukerupert/petpals/internal/quest"
	"github.com/dukerupert/petpals/internal/streak"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON")
	}
	if err := validate.Struct(v); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// writeError maps engine errors onto status codes. Anything unknown is
// logged and reported as 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, engine.ErrPetNotFound):
		writeMessage(w, http.StatusNotFound, "pet not found")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeMessage(w, http.StatusConflict, "insufficient balance")
	case errors.Is(err, engine.ErrPetAsleep):
		writeMessage(w, http.StatusConflict, "pet is asleep")
	case errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, quest.ErrInvalidActivity),
		errors.Is(err, streak.ErrInvalidWeekKey):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("request failed", "op", op, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to "+op)
	}
}
