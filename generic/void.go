package generic

// Void is the zero-size value type used by Set and by Result[Void].
type Void struct{}

func NewVoid() Void {
	return Void{}
}
