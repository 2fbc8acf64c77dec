package discovery

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// mockLookPath returns a function that resolves only the listed binaries.
func mockLookPath(available map[string]string) LookPathFunc {
	return func(file string) (string, error) {
		if path, ok := available[file]; ok {
			return path, nil
		}
		return "", errors.New("not found")
	}
}

// mockGetenv returns a function that resolves only the listed env vars.
func mockGetenv(vars map[string]string) GetenvFunc {
	return func(key string) string {
		return vars[key]
	}
}

// isolate points HOME and the working directory at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", dir)
	return dir
}

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover_Installer(t *testing.T) {
	isolate(t)

	d := New(mockLookPath(map[string]string{"clawhub": "/usr/local/bin/clawhub"}), mockGetenv(nil))
	plan := d.Discover("clawhub install", nil)

	if !plan.Installer.Available {
		t.Fatal("expected installer to be available")
	}
	if plan.Installer.Binary != "clawhub" || plan.Installer.Path != "/usr/local/bin/clawhub" {
		t.Errorf("unexpected installer: %+v", plan.Installer)
	}
}

func TestDiscover_InstallerMissing(t *testing.T) {
	isolate(t)

	plan := New(mockLookPath(nil), mockGetenv(nil)).Discover("clawhub install", nil)
	if plan.Installer.Available {
		t.Error("installer should not be available")
	}

	plan = New(mockLookPath(nil), mockGetenv(nil)).Discover("  ", nil)
	if plan.Installer.Binary != "" {
		t.Errorf("expected no binary for empty command, got %q", plan.Installer.Binary)
	}
}

func TestDiscover_NoSkills(t *testing.T) {
	isolate(t)

	plan := New(mockLookPath(nil), mockGetenv(nil)).Discover("clawhub install", nil)
	if plan.TotalSkills != 0 {
		t.Errorf("expected 0 skills, got %d", plan.TotalSkills)
	}
	if len(plan.ExistingLocations()) != 0 {
		t.Errorf("expected no existing locations, got %+v", plan.ExistingLocations())
	}
	if len(plan.Locations) == 0 {
		t.Error("registry locations should still be reported")
	}
}

func TestDiscover_RegistryLocations(t *testing.T) {
	home := isolate(t)
	mkdirs(t,
		filepath.Join(home, "skills", "weather"),
		filepath.Join(home, "skills", ".cache"),
		filepath.Join(home, ".openclaw", "skills", "notes"),
		filepath.Join(home, ".openclaw", "skills", "calendar"),
	)
	if err := os.WriteFile(filepath.Join(home, "skills", "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan := New(mockLookPath(nil), mockGetenv(nil)).Discover("clawhub install", nil)

	if plan.TotalSkills != 3 {
		t.Fatalf("expected 3 skills, got %d: %+v", plan.TotalSkills, plan.Skills)
	}
	want := []string{"weather", "calendar", "notes"}
	for i, name := range want {
		if plan.Skills[i].Name != name {
			t.Errorf("skill %d = %s, want %s", i, plan.Skills[i].Name, name)
		}
	}
	if plan.Skills[0].Location != "workspace" || plan.Skills[1].Location != "openclaw" {
		t.Errorf("unexpected locations: %+v", plan.Skills)
	}
	if len(plan.ExistingLocations()) != 2 {
		t.Errorf("expected 2 existing locations, got %d", len(plan.ExistingLocations()))
	}
}

func TestDiscover_EnvOverride(t *testing.T) {
	home := isolate(t)
	a := filepath.Join(home, "a")
	b := filepath.Join(home, "b")
	mkdirs(t, filepath.Join(a, "one"), filepath.Join(b, "two"))

	env := mockGetenv(map[string]string{
		"CLAWSHIELD_SKILLS_DIR": a + string(os.PathListSeparator) + b,
	})
	plan := New(mockLookPath(nil), env).Discover("clawhub install", nil)

	if plan.TotalSkills != 2 {
		t.Fatalf("expected 2 skills, got %d", plan.TotalSkills)
	}
	if plan.Skills[0].Location != "custom" || plan.Skills[0].Name != "one" {
		t.Errorf("unexpected first skill: %+v", plan.Skills[0])
	}
}

func TestDiscover_ExplicitDirs(t *testing.T) {
	home := isolate(t)
	mkdirs(t,
		filepath.Join(home, "skills", "weather"),
		filepath.Join(home, "elsewhere", "foo"),
	)

	plan := New(mockLookPath(nil), mockGetenv(nil)).Discover("clawhub install", []string{filepath.Join(home, "elsewhere")})

	if plan.TotalSkills != 1 || plan.Skills[0].Name != "foo" {
		t.Fatalf("expected only explicit dir to be searched, got %+v", plan.Skills)
	}
	if len(plan.Locations) != 1 || plan.Locations[0].Name != "argument" {
		t.Errorf("unexpected locations: %+v", plan.Locations)
	}
}

func TestDiscover_DeduplicatesLocations(t *testing.T) {
	home := isolate(t)
	mkdirs(t, filepath.Join(home, "skills", "weather"))

	plan := New(mockLookPath(nil), mockGetenv(nil)).Discover("clawhub install", []string{"skills", "./skills"})
	if plan.TotalSkills != 1 {
		t.Errorf("expected duplicate dirs to be searched once, got %d skills", plan.TotalSkills)
	}
}

func TestDiscoveryPlan_JSON(t *testing.T) {
	isolate(t)

	plan := New(mockLookPath(nil), mockGetenv(nil)).Discover("clawhub install", nil)
	data, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"installer", "locations", "skills", "total_skills"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if skills, ok := decoded["skills"].([]interface{}); !ok || len(skills) != 0 {
		t.Errorf("skills should encode as an empty array, got %v", decoded["skills"])
	}
}

func TestRegistryFields(t *testing.T) {
	names := map[string]bool{}
	for _, loc := range Registry {
		if loc.Name == "" {
			t.Error("registry entry without a name")
		}
		if names[loc.Name] {
			t.Errorf("duplicate registry name %q", loc.Name)
		}
		names[loc.Name] = true
		if len(loc.Dirs) == 0 && loc.EnvVar == "" {
			t.Errorf("%s: needs dirs or an env var", loc.Name)
		}
	}
}
