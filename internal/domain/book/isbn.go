package book

// ValidateISBN accepts a string satisfying either the ISBN-10 or the ISBN-13
// checksum and rejects everything else.
func ValidateISBN(isbn string) error {
	if isISBN10(isbn) || isISBN13(isbn) {
		return nil
	}
	return ErrInvalidISBN
}

// isISBN10 checks the mod-11 weighted checksum. Positions 0-8 must be digits;
// the check character may be 'X', standing for the value 10.
func isISBN10(s string) bool {
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * (10 - i)
	}
	switch last := s[9]; {
	case last == 'X':
		sum += 10
	case last >= '0' && last <= '9':
		sum += int(last - '0')
	default:
		return false
	}
	return sum%11 == 0
}

// isISBN13 checks the alternating 1/3 weighted checksum over 13 digits.
func isISBN13(s string) bool {
	if len(s) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		sum += int(c-'0') * weight
	}
	last := s[12]
	if last < '0' || last > '9' {
		return false
	}
	check := (10 - sum%10) % 10
	return check == int(last-'0')
}
