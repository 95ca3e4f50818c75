package enums

import "fmt"

// ProductCondition grades the wear of a second-hand listing.
type ProductCondition string

const (
	ProductConditionNew     ProductCondition = "new"
	ProductConditionLikeNew ProductCondition = "like_new"
	ProductConditionGood    ProductCondition = "good"
	ProductConditionFair    ProductCondition = "fair"
)

var validProductConditions = []ProductCondition{
	ProductConditionNew,
	ProductConditionLikeNew,
	ProductConditionGood,
	ProductConditionFair,
}

func (c ProductCondition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCondition.
func (c ProductCondition) IsValid() bool {
	for _, candidate := range validProductConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCondition converts raw input into a ProductCondition.
func ParseProductCondition(value string) (ProductCondition, error) {
	for _, candidate := range validProductConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product condition %q", value)
}
