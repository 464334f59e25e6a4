package domain

// Point is one sample of a signature stroke in display coordinates (0..1 on both axes).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke []Point

type ActionType string

const (
	ActionSelectTip     ActionType = "select_tip"
	ActionProceed       ActionType = "proceed"
	ActionChooseReceipt ActionType = "choose_receipt"
	ActionSignature     ActionType = "signature"
	ActionClearSign     ActionType = "clear_signature"
)

// CustomerAction is an input made on the customer display and routed back to the console.
type CustomerAction struct {
	Type    ActionType         `json:"type"`
	Tip     *TipChoice         `json:"tip,omitempty"`
	Receipt *ReceiptPreference `json:"receipt,omitempty"`
	Strokes []Stroke           `json:"strokes,omitempty"`
}
