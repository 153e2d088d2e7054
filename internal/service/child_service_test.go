package service

import (
	"errors"
	"testing"
	"time"

	"stewardwell/internal/validation"
)

func TestChildLifecycle(t *testing.T) {
	env := newTestEnv(t)
	parent := env.createUser(t, "parent@example.com", "Parent")
	outsider := env.createUser(t, "outsider@example.com", "Outsider")
	family := env.createFamilyWith(t, "The Tests", parent)

	birthdate := time.Date(2016, 4, 12, 0, 0, 0, 0, time.UTC)
	child, err := env.childSvc.CreateChild(family.ID, parent.ID, "Milo", "1234", &birthdate)
	if err != nil {
		t.Fatalf("CreateChild failed: %v", err)
	}
	if child.Name != "Milo" {
		t.Errorf("name = %q", child.Name)
	}
	if child.PINHash == "1234" {
		t.Error("PIN stored in plaintext")
	}

	t.Run("outsider cannot see the child", func(t *testing.T) {
		if _, err := env.childSvc.GetChild(child.ID, outsider.ID); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("family member lists children", func(t *testing.T) {
		children, err := env.childSvc.GetFamilyChildren(family.ID, parent.ID)
		if err != nil {
			t.Fatalf("GetFamilyChildren failed: %v", err)
		}
		if len(children) != 1 || children[0].ID != child.ID {
			t.Errorf("unexpected children list: %+v", children)
		}
	})

	t.Run("update", func(t *testing.T) {
		if err := env.childSvc.UpdateChild(child.ID, parent.ID, "Milo Jr", &birthdate); err != nil {
			t.Fatalf("UpdateChild failed: %v", err)
		}
		updated, err := env.childSvc.GetChild(child.ID, parent.ID)
		if err != nil {
			t.Fatalf("GetChild failed: %v", err)
		}
		if updated.Name != "Milo Jr" {
			t.Errorf("name = %q, want Milo Jr", updated.Name)
		}
	})

	t.Run("pin verification", func(t *testing.T) {
		verified, err := env.childSvc.VerifyChildPIN(child.ID, family.ID, "1234")
		if err != nil {
			t.Fatalf("VerifyChildPIN failed: %v", err)
		}
		if verified.ID != child.ID {
			t.Errorf("verified child %d, want %d", verified.ID, child.ID)
		}

		if _, err := env.childSvc.VerifyChildPIN(child.ID, family.ID, "9999"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("wrong pin: err = %v, want ErrInvalidCredentials", err)
		}
		if _, err := env.childSvc.VerifyChildPIN(child.ID, family.ID+1, "1234"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("wrong family: err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("pin update", func(t *testing.T) {
		if err := env.childSvc.UpdateChildPIN(child.ID, parent.ID, "5678"); err != nil {
			t.Fatalf("UpdateChildPIN failed: %v", err)
		}
		if _, err := env.childSvc.VerifyChildPIN(child.ID, family.ID, "1234"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("old pin still valid after update")
		}
		if _, err := env.childSvc.VerifyChildPIN(child.ID, family.ID, "5678"); err != nil {
			t.Errorf("new pin rejected: %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := env.childSvc.DeleteChild(child.ID, outsider.ID); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("outsider delete: err = %v, want ErrNotAuthorized", err)
		}
		if err := env.childSvc.DeleteChild(child.ID, parent.ID); err != nil {
			t.Fatalf("DeleteChild failed: %v", err)
		}
		if _, err := env.childSvc.GetChild(child.ID, parent.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("child still present after delete: err = %v", err)
		}
	})
}

func TestCreateChildValidation(t *testing.T) {
	env := newTestEnv(t)
	parent := env.createUser(t, "parent@example.com", "Parent")
	outsider := env.createUser(t, "outsider@example.com", "Outsider")
	family := env.createFamilyWith(t, "The Tests", parent)

	if _, err := env.childSvc.CreateChild(family.ID, outsider.ID, "Milo", "1234", nil); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("outsider create: err = %v, want ErrNotAuthorized", err)
	}

	tests := []struct {
		name      string
		childName string
		pin       string
	}{
		{name: "empty name", childName: "", pin: "1234"},
		{name: "short pin", childName: "Milo", pin: "12"},
		{name: "non-numeric pin", childName: "Milo", pin: "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.childSvc.CreateChild(family.ID, parent.ID, tt.childName, tt.pin, nil)
			var verr validation.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("CreateChild error = %v, want ValidationError", err)
			}
		})
	}
}
