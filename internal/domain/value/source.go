package value

// Source — площадка, с которой получено объявление.
type Source string

const (
	SourceListAm   Source = "list.am"
	SourceMyAutoGe Source = "myauto.ge"
)

func (s Source) String() string {
	return string(s)
}
