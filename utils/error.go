package utils

import "errors"

// FirstMatch returns the first of targets which err matches according to errors.Is.
func FirstMatch(err error, targets... error) (error, bool) {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target, true
		}
	}

	return nil, false
}

func ErrorIsAnyOf(err error, targets... error) bool {
	_, ok := FirstMatch(err, targets...)

	return ok
}
