package enums

type ReturnReason string

const (
	ReturnReasonDamaged        ReturnReason = "damaged"
	ReturnReasonWrongItem      ReturnReason = "wrong_item"
	ReturnReasonNotAsDescribed ReturnReason = "not_as_described"
	ReturnReasonSizeIssue      ReturnReason = "size_issue"
	ReturnReasonChangedMind    ReturnReason = "changed_mind"
	ReturnReasonOther          ReturnReason = "other"
)

var validReturnReasons = []ReturnReason{
	ReturnReasonDamaged,
	ReturnReasonWrongItem,
	ReturnReasonNotAsDescribed,
	ReturnReasonSizeIssue,
	ReturnReasonChangedMind,
	ReturnReasonOther,
}

func (r ReturnReason) IsValid() bool {
	return member(r, validReturnReasons)
}

// ParseReturnReason converts raw input into a ReturnReason.
func ParseReturnReason(value string) (ReturnReason, error) {
	return parseMember("return reason", value, validReturnReasons)
}

// ReturnSourceType discriminates what a return request points at.
type ReturnSourceType string

const (
	ReturnSourceOrder    ReturnSourceType = "order"
	ReturnSourceShipment ReturnSourceType = "to_be_shipped"
)

var returnSources = []ReturnSourceType{ReturnSourceOrder, ReturnSourceShipment}

func (t ReturnSourceType) IsValid() bool {
	return member(t, returnSources)
}

// ParseReturnSourceType converts raw input into a ReturnSourceType.
func ParseReturnSourceType(value string) (ReturnSourceType, error) {
	return parseMember("return source type", value, returnSources)
}
