package domain

// Pack template names. They double as the pack name stored on cart lines.
const (
	PackPremium  = "Pack Premium"
	PackPrestige = "Pack Prestige"
	PackTrio     = "Pack Trio"
	PackDuo      = "Pack Duo"
	PackMiniDuo  = "Pack Mini Duo"
)

// Item groups used by the pack rules.
const (
	ItemGroupCravates      = "cravates"
	ItemGroupPortefeuilles = "portefeuilles"
	ItemGroupCeintures     = "ceintures"
	ItemGroupPorteCles     = "porte-cles"
	ItemGroupPorteCartes   = "porte-cartes"
)
