package models

// Skill category names used by the validation rule and the XP conversion table.
const (
	SkillCategoryTechnical   = "technical"
	SkillCategoryPhysical    = "physical"
	SkillCategoryTactical    = "tactical"
	SkillCategoryGoalkeeping = "goalkeeping"
)

// skillCatalog maps every recognized skill identifier to its category.
var skillCatalog = map[string]string{
	"passing":     SkillCategoryTechnical,
	"dribbling":   SkillCategoryTechnical,
	"shooting":    SkillCategoryTechnical,
	"first_touch": SkillCategoryTechnical,
	"stamina":     SkillCategoryPhysical,
	"pace":        SkillCategoryPhysical,
	"strength":    SkillCategoryPhysical,
	"positioning": SkillCategoryTactical,
	"vision":      SkillCategoryTactical,
	"defending":   SkillCategoryTactical,
	"handling":    SkillCategoryGoalkeeping,
	"reflexes":    SkillCategoryGoalkeeping,
}

// IsRecognizedSkill reports whether the identifier belongs to the skill catalog.
func IsRecognizedSkill(skill string) bool {
	_, ok := skillCatalog[skill]
	return ok
}

// SkillCategory returns the category for a skill and whether the skill is mapped.
func SkillCategory(skill string) (string, bool) {
	category, ok := skillCatalog[skill]
	return category, ok
}

// RecognizedSkills returns the catalog identifiers, useful for validation messages.
func RecognizedSkills() []string {
	skills := make([]string, 0, len(skillCatalog))
	for skill := range skillCatalog {
		skills = append(skills, skill)
	}
	return skills
}
