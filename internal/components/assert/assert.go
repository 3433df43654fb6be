package assert

import "fmt"

// NotNil panics if value is nil. It is used in constructors to catch
// missing dependencies at startup instead of at the first request.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

func NotEmptySlice[T any](name string, values []T) {
	if len(values) == 0 {
		panic(fmt.Sprintf("expected %s to have at least one element", name))
	}
}
