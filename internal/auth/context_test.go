package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{UserID: "u-1", DeviceID: "tablet"}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != "u-1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "u-1")
	}
	if got.DeviceID != "tablet" {
		t.Errorf("DeviceID = %q, want %q", got.DeviceID, "tablet")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: "u-7"})
	if UserID(ctx) != "u-7" {
		t.Errorf("UserID = %q, want u-7", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != "" {
		t.Error("expected empty user id for missing context")
	}
}

func TestDeviceIDMissing(t *testing.T) {
	if DeviceID(context.Background()) != "" {
		t.Error("expected empty device id for missing context")
	}
}
