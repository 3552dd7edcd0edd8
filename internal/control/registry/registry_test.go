package registry

import (
	"errors"
	"testing"
)

func TestRegisterAndGet(t *testing.T) {
	r := New()
	err := r.Register(ControlDescriptor{
		PanelKey:   "main",
		ControlKey: "enableDebugging",
		Type:       TypeBool,
		Default:    false,
		Persistent: true,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	d := r.Get("main", "enableDebugging")
	if d == nil {
		t.Fatal("Get returned nil for registered control")
	}
	if d.Default != false {
		t.Errorf("Default = %v, want false", d.Default)
	}
	if !r.Has("main", "enableDebugging") {
		t.Error("Has = false, want true")
	}
	if r.Get("main", "missing") != nil {
		t.Error("Get returned descriptor for unregistered control")
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	desc := ControlDescriptor{PanelKey: "main", ControlKey: "volume", Type: TypeNumber, Default: float64(50)}
	if err := r.Register(desc); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(desc); !errors.Is(err, ErrControlAlreadyRegistered) {
		t.Errorf("second Register error = %v, want ErrControlAlreadyRegistered", err)
	}
}

func TestSameKeyDifferentPanels(t *testing.T) {
	r := New()
	if err := r.Register(ControlDescriptor{PanelKey: "audio", ControlKey: "enabled", Type: TypeBool}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(ControlDescriptor{PanelKey: "video", ControlKey: "enabled", Type: TypeBool}); err != nil {
		t.Errorf("Register in second panel failed: %v", err)
	}
}

func TestMustRegisterPanics(t *testing.T) {
	r := New()
	r.MustRegister(ControlDescriptor{PanelKey: "main", ControlKey: "a", Type: TypeBool})

	defer func() {
		if recover() == nil {
			t.Error("MustRegister did not panic on duplicate")
		}
	}()
	r.MustRegister(ControlDescriptor{PanelKey: "main", ControlKey: "a", Type: TypeBool})
}

func TestPersistent(t *testing.T) {
	r := New()
	r.MustRegister(ControlDescriptor{PanelKey: "main", ControlKey: "saved", Type: TypeBool, Persistent: true})
	r.MustRegister(ControlDescriptor{PanelKey: "main", ControlKey: "transient", Type: TypeBool, Persistent: false})

	if !r.Persistent("main", "saved") {
		t.Error("Persistent(saved) = false, want true")
	}
	if r.Persistent("main", "transient") {
		t.Error("Persistent(transient) = true, want false")
	}
	if r.Persistent("main", "unknown") {
		t.Error("Persistent(unknown) = true, want false")
	}
}

func TestPanelsSorted(t *testing.T) {
	r := New()
	r.MustRegister(ControlDescriptor{PanelKey: "video", ControlKey: "b", Type: TypeBool})
	r.MustRegister(ControlDescriptor{PanelKey: "audio", ControlKey: "a", Type: TypeBool})
	r.MustRegister(ControlDescriptor{PanelKey: "audio", ControlKey: "c", Type: TypeBool})

	panels := r.Panels()
	if len(panels) != 2 || panels[0] != "audio" || panels[1] != "video" {
		t.Errorf("Panels = %v, want [audio video]", panels)
	}

	controls := r.Panel("audio")
	if len(controls) != 2 || controls[0].ControlKey != "a" || controls[1].ControlKey != "c" {
		t.Errorf("Panel(audio) keys wrong: %v", controls)
	}

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("All returned %d descriptors, want 3", len(all))
	}
	if all[0].PanelKey != "audio" || all[2].PanelKey != "video" {
		t.Errorf("All not sorted by panel: %v, %v", all[0].PanelKey, all[2].PanelKey)
	}
}

func TestValidateType(t *testing.T) {
	tests := []struct {
		desc  ControlDescriptor
		value any
		ok    bool
	}{
		{ControlDescriptor{Type: TypeBool}, true, true},
		{ControlDescriptor{Type: TypeBool}, "yes", false},
		{ControlDescriptor{Type: TypeNumber}, float64(3), true},
		{ControlDescriptor{Type: TypeNumber}, 3, true},
		{ControlDescriptor{Type: TypeNumber}, "3", false},
		{ControlDescriptor{Type: TypeString}, "s", true},
		{ControlDescriptor{Type: TypeString}, 1, false},
		{ControlDescriptor{Type: TypeMapping}, map[string]any{}, true},
		{ControlDescriptor{Type: TypeMapping}, []any{}, true},
		{ControlDescriptor{Type: TypeMapping}, 7, false},
	}

	for _, tt := range tests {
		err := tt.desc.Validate(tt.value)
		if tt.ok && err != nil {
			t.Errorf("Validate(%v as %s) error = %v", tt.value, tt.desc.Type, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("Validate(%v as %s) = nil, want error", tt.value, tt.desc.Type)
		}
	}
}

func TestValidateConstraints(t *testing.T) {
	ranged := ControlDescriptor{Type: TypeNumber, Minimum: MinValue(0), Maximum: MaxValue(100)}
	if err := ranged.Validate(float64(50)); err != nil {
		t.Errorf("Validate(50) error = %v", err)
	}
	if err := ranged.Validate(float64(-1)); err == nil {
		t.Error("Validate(-1) = nil, want range error")
	}
	if err := ranged.Validate(float64(101)); err == nil {
		t.Error("Validate(101) = nil, want range error")
	}

	enum := ControlDescriptor{Type: TypeString, Enum: []any{"low", "high"}}
	if err := enum.Validate("low"); err != nil {
		t.Errorf("Validate(low) error = %v", err)
	}
	if err := enum.Validate("medium"); err == nil {
		t.Error("Validate(medium) = nil, want enum error")
	}

	pattern := ControlDescriptor{Type: TypeString, Pattern: `^[a-z]+$`}
	if err := pattern.Validate("abc"); err != nil {
		t.Errorf("Validate(abc) error = %v", err)
	}
	if err := pattern.Validate("ABC"); err == nil {
		t.Error("Validate(ABC) = nil, want pattern error")
	}
}

func TestRegistryValidateUnknownAllowed(t *testing.T) {
	r := New()
	if err := r.Validate("ghost", "control", 42); err != nil {
		t.Errorf("Validate(unknown) error = %v, want nil", err)
	}
}
