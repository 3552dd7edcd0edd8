package control

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/prefkit/internal/control/hook"
	"github.com/dshills/prefkit/internal/control/notify"
	"github.com/dshills/prefkit/internal/control/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg := registry.New()
	reg.MustRegister(registry.ControlDescriptor{
		PanelKey:   "sound",
		ControlKey: "volume",
		Type:       registry.TypeNumber,
		Default:    float64(50),
		Persistent: true,
	})
	reg.MustRegister(registry.ControlDescriptor{
		PanelKey:   "sound",
		ControlKey: "muted",
		Type:       registry.TypeBool,
		Default:    false,
		Persistent: true,
	})
	reg.MustRegister(registry.ControlDescriptor{
		PanelKey:   "display",
		ControlKey: "theme",
		Type:       registry.TypeString,
		Default:    "dawn",
		Persistent: true,
	})
	reg.MustRegister(registry.ControlDescriptor{
		PanelKey:   "display",
		ControlKey: "preview",
		Type:       registry.TypeBool,
		Default:    true,
		Persistent: false,
	})
	return reg
}

func TestResolveDefaultAndUnknown(t *testing.T) {
	e := New(testRegistry(t), map[string]any{}, map[string]any{})

	if got := e.Resolve("sound", "volume"); got != float64(50) {
		t.Errorf("Resolve(sound, volume) = %v, want 50", got)
	}
	if got := e.Resolve("display", "preview"); got != true {
		t.Errorf("Resolve(display, preview) = %v, want true", got)
	}
	if got := e.Resolve("nosuch", "control"); got != nil {
		t.Errorf("Resolve(nosuch, control) = %v, want nil", got)
	}
}

func TestResolveStoreOverridesDefault(t *testing.T) {
	globalData := map[string]any{
		"sound": map[string]any{"volume": float64(80)},
	}
	e := New(testRegistry(t), globalData, map[string]any{})

	if got := e.Resolve("sound", "volume"); got != float64(80) {
		t.Errorf("Resolve(sound, volume) = %v, want 80", got)
	}
}

func TestSetPersistentWritesHostMap(t *testing.T) {
	globalData := map[string]any{}
	e := New(testRegistry(t), globalData, map[string]any{})

	e.Set("sound", "volume", float64(25))

	panel, ok := globalData["sound"].(map[string]any)
	if !ok {
		t.Fatalf("host map has no sound panel after Set: %v", globalData)
	}
	if panel["volume"] != float64(25) {
		t.Errorf("host map volume = %v, want 25", panel["volume"])
	}
	if got := e.Resolve("sound", "volume"); got != float64(25) {
		t.Errorf("Resolve after Set = %v, want 25", got)
	}
}

func TestSetNonPersistentStaysOutOfStore(t *testing.T) {
	globalData := map[string]any{}
	e := New(testRegistry(t), globalData, map[string]any{})

	e.Set("display", "preview", false)

	if _, ok := globalData["display"]; ok {
		t.Errorf("non-persistent Set reached the backing store: %v", globalData)
	}
	if got := e.Resolve("display", "preview"); got != false {
		t.Errorf("Resolve(display, preview) = %v, want false", got)
	}
}

func TestSetUnregisteredStaysOutOfStore(t *testing.T) {
	globalData := map[string]any{}
	e := New(testRegistry(t), globalData, map[string]any{})

	e.Set("scratch", "note", "hello")

	if len(globalData) != 0 {
		t.Errorf("unregistered Set reached the backing store: %v", globalData)
	}
	if got := e.Resolve("scratch", "note"); got != "hello" {
		t.Errorf("Resolve(scratch, note) = %v, want hello", got)
	}
}

func TestSessionOverridesStoreForNonPersistent(t *testing.T) {
	globalData := map[string]any{
		"display": map[string]any{"preview": true},
	}
	e := New(testRegistry(t), globalData, map[string]any{})

	e.Set("display", "preview", false)

	if got := e.Resolve("display", "preview"); got != false {
		t.Errorf("Resolve(display, preview) = %v, want session value false", got)
	}
	panel := globalData["display"].(map[string]any)
	if panel["preview"] != true {
		t.Errorf("store value changed by session write: %v", panel["preview"])
	}
}

func TestReservedKeyPinnedToEntity(t *testing.T) {
	globalData := map[string]any{}
	entityData := map[string]any{}
	e := New(testRegistry(t), globalData, entityData)

	if got := e.Resolve("any", UseAlternateScopeKey); got != false {
		t.Errorf("Resolve(flag) on fresh store = %v, want false", got)
	}

	e.Set("whatever", UseAlternateScopeKey, true)

	if entityData[UseAlternateScopeKey] != true {
		t.Errorf("flag not written to entity root: %v", entityData)
	}
	if _, ok := globalData[UseAlternateScopeKey]; ok {
		t.Errorf("flag leaked to global store: %v", globalData)
	}
	if got := e.Resolve("other", UseAlternateScopeKey); got != true {
		t.Errorf("Resolve(flag) = %v, want true", got)
	}
}

func TestSwitchProfileFlipsActive(t *testing.T) {
	globalData := map[string]any{
		"display": map[string]any{"theme": "shared"},
	}
	entityData := map[string]any{
		"display": map[string]any{"theme": "mine"},
	}
	e := New(testRegistry(t), globalData, entityData)

	if e.UseAlternate() {
		t.Fatal("fresh engine should start on the global store")
	}
	if got := e.Resolve("display", "theme"); got != "shared" {
		t.Errorf("Resolve before switch = %v, want shared", got)
	}

	e.SwitchProfile(true)

	if !e.UseAlternate() {
		t.Fatal("UseAlternate() = false after SwitchProfile(true)")
	}
	if got := e.Resolve("display", "theme"); got != "mine" {
		t.Errorf("Resolve after switch = %v, want mine", got)
	}
	if entityData[UseAlternateScopeKey] != true {
		t.Errorf("flag not recorded in entity data: %v", entityData)
	}

	e.SwitchProfile(false)
	if got := e.Resolve("display", "theme"); got != "shared" {
		t.Errorf("Resolve after switch back = %v, want shared", got)
	}
	if entityData[UseAlternateScopeKey] != false {
		t.Errorf("flag not updated on switch back: %v", entityData)
	}
}

func TestNewRestoresProfileFromFlag(t *testing.T) {
	entityData := map[string]any{
		UseAlternateScopeKey: true,
		"display":            map[string]any{"theme": "mine"},
	}
	e := New(testRegistry(t), map[string]any{}, entityData)

	if !e.UseAlternate() {
		t.Fatal("engine did not restore the alternate profile from the flag")
	}
	if got := e.Resolve("display", "theme"); got != "mine" {
		t.Errorf("Resolve = %v, want mine", got)
	}
	if got := e.ActiveName(); got != "entity" {
		t.Errorf("ActiveName() = %q, want entity", got)
	}
}

func TestSwitchProfileRunsRefreshSynchronously(t *testing.T) {
	e := New(testRegistry(t), map[string]any{}, map[string]any{})

	var order []string
	e.Notifier().SubscribeRefresh("sound", func() { order = append(order, "sound") })
	e.Notifier().SubscribeRefresh("display", func() { order = append(order, "display") })

	e.SwitchProfile(true)

	want := []string{"sound", "display"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("refresh order = %v, want %v", order, want)
	}
}

func TestSetNotifiesControlObserver(t *testing.T) {
	globalData := map[string]any{
		"sound": map[string]any{"volume": float64(10)},
	}
	e := New(testRegistry(t), globalData, map[string]any{})

	var got notify.Change
	e.Notifier().SubscribeControl("sound", "volume", func(c notify.Change) { got = c })

	e.Set("sound", "volume", float64(70))

	if got.OldValue != float64(10) || got.NewValue != float64(70) {
		t.Errorf("change = old %v new %v, want old 10 new 70", got.OldValue, got.NewValue)
	}
	if got.Source != "global" {
		t.Errorf("change source = %q, want global", got.Source)
	}
}

func TestSetFiresOnValueChange(t *testing.T) {
	reg := registry.New()
	var oldSeen, newSeen any
	reg.MustRegister(registry.ControlDescriptor{
		PanelKey:   "sound",
		ControlKey: "volume",
		Type:       registry.TypeNumber,
		Default:    float64(0),
		Persistent: true,
		OnValueChange: func(oldValue, newValue any) {
			oldSeen, newSeen = oldValue, newValue
		},
	})
	e := New(reg, map[string]any{}, map[string]any{})

	e.Set("sound", "volume", float64(42))

	if oldSeen != nil || newSeen != float64(42) {
		t.Errorf("OnValueChange got (%v, %v), want (nil, 42)", oldSeen, newSeen)
	}
}

func TestPreHookRewritesResolveKeys(t *testing.T) {
	globalData := map[string]any{
		"audio": map[string]any{"volume": float64(5)},
	}
	e := New(testRegistry(t), globalData, map[string]any{})

	e.Hooks().RegisterPre(hook.OpResolve, func(inv *hook.Invocation) {
		if inv.PanelKey == "sound" {
			inv.PanelKey = "audio"
		}
	})

	if got := e.Resolve("sound", "volume"); got != float64(5) {
		t.Errorf("Resolve through rewrite hook = %v, want 5", got)
	}
}

func TestPreHookTransformsSetValue(t *testing.T) {
	globalData := map[string]any{}
	e := New(testRegistry(t), globalData, map[string]any{})

	e.Hooks().RegisterPre(hook.OpSet, func(inv *hook.Invocation) {
		if n, ok := inv.Value.(float64); ok && n > 100 {
			inv.Value = float64(100)
		}
	})

	e.Set("sound", "volume", float64(300))

	if got := e.Resolve("sound", "volume"); got != float64(100) {
		t.Errorf("clamped Set resolved to %v, want 100", got)
	}
}

func TestPostHookObservesSet(t *testing.T) {
	e := New(testRegistry(t), map[string]any{}, map[string]any{})

	var seen []hook.Invocation
	e.Hooks().RegisterPost(hook.OpSet, func(inv hook.Invocation, result any, err error) {
		if err != nil {
			t.Errorf("Set post-hook got error: %v", err)
		}
		seen = append(seen, inv)
	})

	e.Set("sound", "muted", true)

	if len(seen) != 1 {
		t.Fatalf("post-hook ran %d times, want 1", len(seen))
	}
	if seen[0].PanelKey != "sound" || seen[0].ControlKey != "muted" || seen[0].Value != true {
		t.Errorf("post-hook invocation = %+v", seen[0])
	}
}

func TestExportSnapshotFilters(t *testing.T) {
	entityData := map[string]any{
		UseAlternateScopeKey: true,
		"sound": map[string]any{
			"volume": float64(60),
		},
		"display": map[string]any{
			"preview": false,
		},
	}
	e := New(testRegistry(t), map[string]any{}, entityData)

	snap := e.ExportSnapshot()

	if _, ok := snap[UseAlternateScopeKey]; ok {
		t.Error("reserved flag leaked into export snapshot")
	}
	if _, ok := snap["display"]; ok {
		t.Errorf("panel with only non-persistent controls kept in snapshot: %v", snap)
	}
	panel, ok := snap["sound"].(map[string]any)
	if !ok || panel["volume"] != float64(60) {
		t.Errorf("snapshot sound panel = %v, want volume 60", snap["sound"])
	}

	panel["volume"] = float64(0)
	if got := e.Resolve("sound", "volume"); got != float64(60) {
		t.Errorf("mutating snapshot changed the store: Resolve = %v", got)
	}
}

func TestReplacePreservesFlagOnEntity(t *testing.T) {
	entityData := map[string]any{
		UseAlternateScopeKey: true,
		"sound":              map[string]any{"volume": float64(1)},
		"stale":              map[string]any{"gone": "yes"},
	}
	e := New(testRegistry(t), map[string]any{}, entityData)

	e.Replace(map[string]any{
		"display": map[string]any{"theme": "imported"},
	}, "import")

	if entityData[UseAlternateScopeKey] != true {
		t.Errorf("flag lost across Replace: %v", entityData)
	}
	if _, ok := entityData["stale"]; ok {
		t.Errorf("Replace merged instead of clearing: %v", entityData)
	}
	if _, ok := entityData["sound"]; ok {
		t.Errorf("Replace kept old panel: %v", entityData)
	}
	if got := e.Resolve("display", "theme"); got != "imported" {
		t.Errorf("Resolve after Replace = %v, want imported", got)
	}
	if !e.UseAlternate() {
		t.Error("active store changed across Replace")
	}
}

func TestReplaceGlobalRunsRefresh(t *testing.T) {
	globalData := map[string]any{
		"sound": map[string]any{"volume": float64(9)},
	}
	e := New(testRegistry(t), globalData, map[string]any{})

	refreshed := 0
	e.Notifier().SubscribeRefresh("sound", func() { refreshed++ })

	e.Replace(map[string]any{
		"sound": map[string]any{"volume": float64(2)},
	}, "import")

	if refreshed != 1 {
		t.Errorf("refresh ran %d times, want 1", refreshed)
	}
	if _, ok := globalData[UseAlternateScopeKey]; ok {
		t.Errorf("flag injected into global store: %v", globalData)
	}
	if got := e.Resolve("sound", "volume"); got != float64(2) {
		t.Errorf("Resolve after Replace = %v, want 2", got)
	}
}

func TestTypedAccessors(t *testing.T) {
	globalData := map[string]any{
		"sound":   map[string]any{"volume": 30},
		"display": map[string]any{"theme": "dusk"},
	}
	e := New(testRegistry(t), globalData, map[string]any{})

	n, err := e.ResolveNumber("sound", "volume")
	if err != nil || n != 30 {
		t.Errorf("ResolveNumber = (%v, %v), want (30, nil)", n, err)
	}

	s, err := e.ResolveString("display", "theme")
	if err != nil || s != "dusk" {
		t.Errorf("ResolveString = (%q, %v), want (dusk, nil)", s, err)
	}

	b, err := e.ResolveBool("sound", "muted")
	if err != nil || b != false {
		t.Errorf("ResolveBool = (%v, %v), want (false, nil)", b, err)
	}

	if _, err := e.ResolveBool("display", "theme"); err == nil {
		t.Error("ResolveBool on a string control did not fail")
	} else {
		var te *TypeError
		if !errors.As(err, &te) {
			t.Errorf("ResolveBool error = %v, want *TypeError", err)
		}
	}

	if _, err := e.ResolveString("nosuch", "control"); !errors.Is(err, ErrControlNotFound) {
		t.Errorf("ResolveString on unknown control = %v, want ErrControlNotFound", err)
	}
}

func TestWithSessionSeed(t *testing.T) {
	e := New(testRegistry(t), map[string]any{}, map[string]any{},
		WithSessionSeed(map[string]map[string]any{
			"display": {"preview": false},
		}))

	if got := e.Resolve("display", "preview"); got != false {
		t.Errorf("seeded session value = %v, want false", got)
	}
}

func TestReloadStoreHonorsFileFlag(t *testing.T) {
	e := New(testRegistry(t), map[string]any{}, map[string]any{})

	refreshes := 0
	e.Notifier().SubscribeRefresh("sound", func() { refreshes++ })

	err := e.ReloadStore("entity", map[string]any{
		UseAlternateScopeKey: true,
		"sound":              map[string]any{"volume": float64(15)},
	}, "test")
	if err != nil {
		t.Fatalf("ReloadStore(entity) error = %v", err)
	}
	if got := e.ActiveName(); got != "entity" {
		t.Errorf("active store after flagged reload = %q, want entity", got)
	}
	if got := e.Resolve("sound", "volume"); got != float64(15) {
		t.Errorf("Resolve after flagged reload = %v, want 15", got)
	}
	if refreshes != 1 {
		t.Errorf("refresh count after reload = %d, want 1", refreshes)
	}

	err = e.ReloadStore("entity", map[string]any{}, "test")
	if err != nil {
		t.Fatalf("ReloadStore(entity) error = %v", err)
	}
	if got := e.ActiveName(); got != "global" {
		t.Errorf("active store after unflagged reload = %q, want global", got)
	}

	if err := e.ReloadStore("nosuch", map[string]any{}, "test"); err == nil {
		t.Error("ReloadStore with unknown name did not fail")
	}
}

func TestStoreContentsIsDetachedCopy(t *testing.T) {
	e := New(testRegistry(t), map[string]any{}, map[string]any{})
	e.Set("sound", "volume", float64(70))

	contents, err := e.StoreContents("global")
	if err != nil {
		t.Fatalf("StoreContents(global) error = %v", err)
	}
	panel, ok := contents["sound"].(map[string]any)
	if !ok || panel["volume"] != float64(70) {
		t.Fatalf("StoreContents = %v, want sound/volume 70", contents)
	}

	panel["volume"] = float64(0)
	if got := e.Resolve("sound", "volume"); got != float64(70) {
		t.Errorf("Resolve after mutating snapshot = %v, want 70", got)
	}

	if _, err := e.StoreContents("nosuch"); err == nil {
		t.Error("StoreContents with unknown name did not fail")
	}
}
