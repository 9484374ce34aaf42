package roles

import "github.com/tim48-robot/disgitbot/internal/domain"

// Tier is one step of a built-in role ladder
type Tier struct {
	Name      string
	Threshold int
	Color     RGB
}

// RGB is a role color
type RGB struct{ R, G, B uint8 }

// Int returns the color as the 0xRRGGBB integer guild platforms expect
func (c RGB) Int() int {
	return int(c.R)<<16 | int(c.G)<<8 | int(c.B)
}

// StatsCategoryName is the reserved name of the guild stats category
const StatsCategoryName = "REPOSITORY STATS"

var defaultLadders = map[domain.ActivityKind][]Tier{
	domain.KindPullRequest: {
		{Name: "🌸 1+ PRs", Threshold: 1, Color: RGB{255, 182, 193}},
		{Name: "🌺 6+ PRs", Threshold: 6, Color: RGB{255, 160, 180}},
		{Name: "🌻 16+ PRs", Threshold: 16, Color: RGB{255, 140, 167}},
		{Name: "🌷 31+ PRs", Threshold: 31, Color: RGB{255, 120, 154}},
		{Name: "🌹 51+ PRs", Threshold: 51, Color: RGB{255, 100, 141}},
	},
	domain.KindIssue: {
		{Name: "🍃 1+ GitHub Issues Reported", Threshold: 1, Color: RGB{189, 252, 201}},
		{Name: "🌿 6+ GitHub Issues Reported", Threshold: 6, Color: RGB{169, 252, 186}},
		{Name: "🌱 16+ GitHub Issues Reported", Threshold: 16, Color: RGB{149, 252, 171}},
		{Name: "🌾 31+ GitHub Issues Reported", Threshold: 31, Color: RGB{129, 252, 156}},
		{Name: "🍀 51+ GitHub Issues Reported", Threshold: 51, Color: RGB{109, 252, 141}},
	},
	domain.KindCommit: {
		{Name: "☁️ 1+ Commits", Threshold: 1, Color: RGB{230, 230, 250}},
		{Name: "🌊 51+ Commits", Threshold: 51, Color: RGB{173, 216, 230}},
		{Name: "🌈 101+ Commits", Threshold: 101, Color: RGB{186, 186, 255}},
		{Name: "🌙 251+ Commits", Threshold: 251, Color: RGB{221, 160, 221}},
		{Name: "⭐ 501+ Commits", Threshold: 501, Color: RGB{200, 140, 255}},
	},
}

var defaultMedals = []Tier{
	{Name: "✨ PR Champion", Color: RGB{255, 215, 180}},
	{Name: "💫 PR Runner-up", Color: RGB{220, 220, 220}},
	{Name: "🔮 PR Bronze", Color: RGB{205, 180, 150}},
}

// Role names from earlier naming schemes, removed wherever they are found
var defaultObsolete = func() []string {
	names := []string{
		"Beginner (1-5 PRs)", "Contributor (6-15 PRs)", "Analyst (16-30 PRs)", "Expert (31-50 PRs)", "Master (51+ PRs)",
		"Beginner (1-5 Issues)", "Contributor (6-15 Issues)", "Analyst (16-30 Issues)", "Expert (31-50 Issues)", "Master (51+ Issues)",
		"Beginner (1-50 Commits)", "Contributor (51-100 Commits)", "Analyst (101-250 Commits)", "Expert (251-500 Commits)", "Master (501+ Commits)",
		"1+ Commit", "51+ Commit", "101+ Commit", "251+ Commit", "501+ Commit",
		"PR Champion", "PR Runner-up", "PR Bronze",
		"☁️ 1+ Commit", "🌊 51+ Commit", "🌈 101+ Commit", "🌙 251+ Commit", "⭐ 501+ Commit",
	}
	issueEmoji := []string{"🍃", "🌿", "🌱", "🌾", "🍀"}
	prEmoji := []string{"🌸", "🌺", "🌻", "🌷", "🌹"}
	for i, tier := range []string{"1+", "6+", "16+", "31+", "51+"} {
		names = append(names,
			tier+" PR", tier+" Issue", tier+" Issue Reporter", tier+" Bug Hunter",
			prEmoji[i]+" "+tier+" PR",
			issueEmoji[i]+" "+tier+" Issue",
			issueEmoji[i]+" "+tier+" Issue Reporter",
			issueEmoji[i]+" "+tier+" Bug Hunter",
		)
	}
	return names
}()
