package enums

type Intent string

const (
	IntentLike      Intent = "LIKE"
	IntentSuperLike Intent = "SUPERLIKE"
	IntentDislike   Intent = "DISLIKE"
)
