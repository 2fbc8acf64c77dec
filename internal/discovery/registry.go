package discovery

// SkillLocation describes where one skill host keeps installed skills.
type SkillLocation struct {
	Name   string   // short label shown in audit and doctor output
	Dirs   []string // candidate directories, ~/ expanded
	EnvVar string   // env var that overrides Dirs with a path list
}

// Registry lists the skill locations audit checks, in order.
var Registry = []SkillLocation{
	{
		Name:   "custom",
		EnvVar: "CLAWSHIELD_SKILLS_DIR",
	},
	{
		Name: "workspace",
		Dirs: []string{"skills"},
	},
	{
		Name:   "openclaw",
		Dirs:   []string{"~/.openclaw/skills", "~/.openclaw/workspace/skills"},
		EnvVar: "OPENCLAW_SKILLS_DIR",
	},
	{
		Name: "clawhub",
		Dirs: []string{"~/.clawhub/skills"},
	},
}
