package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LookPathFunc matches the signature of exec.LookPath.
type LookPathFunc func(file string) (string, error)

// GetenvFunc matches the signature of os.Getenv.
type GetenvFunc func(key string) string

// Discoverer probes the local environment for the installer binary and
// installed skills. Injectable deps make it fully testable.
type Discoverer struct {
	lookPath LookPathFunc
	getenv   GetenvFunc
}

// New creates a Discoverer with the given dependency functions.
func New(lookPath LookPathFunc, getenv GetenvFunc) *Discoverer {
	return &Discoverer{
		lookPath: lookPath,
		getenv:   getenv,
	}
}

// InstallerStatus describes the configured install binary.
type InstallerStatus struct {
	Command   string `json:"command"`
	Binary    string `json:"binary"`
	Path      string `json:"path,omitempty"`
	Available bool   `json:"available"`
}

// LocationStatus tracks whether a skill directory exists.
type LocationStatus struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Skills int    `json:"skills"`
}

// Skill is one installed skill directory.
type Skill struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// DiscoveryPlan is the complete result of a discovery scan.
type DiscoveryPlan struct {
	Installer   InstallerStatus  `json:"installer"`
	Locations   []LocationStatus `json:"locations"`
	Skills      []Skill          `json:"skills"`
	TotalSkills int              `json:"total_skills"`
}

// Discover resolves the installer binary and lists installed skills. When
// dirs is non-empty only those directories are searched. No network calls.
func (d *Discoverer) Discover(installCmd string, dirs []string) *DiscoveryPlan {
	plan := &DiscoveryPlan{
		Installer: d.installer(installCmd),
		Locations: []LocationStatus{},
		Skills:    []Skill{},
	}

	seen := map[string]bool{}
	for _, loc := range d.locations(dirs) {
		abs, err := filepath.Abs(loc.Path)
		if err == nil {
			loc.Path = abs
		}
		if seen[loc.Path] {
			continue
		}
		seen[loc.Path] = true

		skills := listSkills(loc.Path, loc.Name)
		loc.Exists = dirExists(loc.Path)
		loc.Skills = len(skills)

		plan.Locations = append(plan.Locations, loc)
		plan.Skills = append(plan.Skills, skills...)
	}

	plan.TotalSkills = len(plan.Skills)
	return plan
}

// ExistingLocations returns only the locations present on disk.
func (p *DiscoveryPlan) ExistingLocations() []LocationStatus {
	var found []LocationStatus
	for _, l := range p.Locations {
		if l.Exists {
			found = append(found, l)
		}
	}
	return found
}

func (d *Discoverer) installer(installCmd string) InstallerStatus {
	st := InstallerStatus{Command: installCmd}
	fields := strings.Fields(installCmd)
	if len(fields) == 0 {
		return st
	}
	st.Binary = fields[0]
	if path, err := d.lookPath(st.Binary); err == nil {
		st.Available = true
		st.Path = path
	}
	return st
}

func (d *Discoverer) locations(dirs []string) []LocationStatus {
	var locs []LocationStatus
	if len(dirs) > 0 {
		for _, dir := range dirs {
			locs = append(locs, LocationStatus{Name: "argument", Path: expandHome(dir)})
		}
		return locs
	}

	for _, sl := range Registry {
		candidates := sl.Dirs
		if sl.EnvVar != "" {
			if v := d.getenv(sl.EnvVar); v != "" {
				candidates = filepath.SplitList(v)
			}
		}
		for _, dir := range candidates {
			if dir == "" {
				continue
			}
			locs = append(locs, LocationStatus{Name: sl.Name, Path: expandHome(dir)})
		}
	}
	return locs
}

// listSkills returns the non-hidden subdirectories of dir, sorted by name.
func listSkills(dir, location string) []Skill {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var skills []Skill
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		skills = append(skills, Skill{
			Name:     e.Name(),
			Path:     filepath.Join(dir, e.Name()),
			Location: location,
		})
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
