package utils

// Reversed returns a reversed copy of s.
func Reversed[S ~[]E, E any](s S) S {
  out := make(S, len(s))

  for i, e := range s {
    out[len(s)-1-i] = e
  }

  return out
}
