package autocomplete

// Next moves the highlight down one entry, wrapping to the top.
func Next(index, length int) int {
	if length == 0 {
		return index
	}
	return (index + 1) % length
}

// Prev moves the highlight up one entry, wrapping to the bottom.
func Prev(index, length int) int {
	if length == 0 {
		return index
	}
	return (index - 1 + length) % length
}

// Clamp forces index into [0, max(1, length)).
func Clamp(index, length int) int {
	if index < 0 || length == 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}
