package tokenizer

// SplitOptions controls Split.
type SplitOptions struct {
	// KeepDelimiters includes each matched delimiter as its own fragment.
	KeepDelimiters bool

	// DropEmpty removes empty fragments. Delimiters are never dropped.
	DropEmpty bool

	// Limit caps the number of non-delimiter fragments. Once Limit-1 have
	// been produced the rest of the subject is returned verbatim as the last
	// one. Zero or negative means no limit.
	Limit int
}

// Split breaks subject at every match of the delimiter expression that lies
// outside an atomic region.
//
// With KeepDelimiters set and DropEmpty unset, concatenating the result
// reproduces subject exactly. Closing brackets of a configured kind found
// outside any atomic region are a SyntaxError, as are unterminated quotes and
// brackets.
func (s *Scanner) Split(subject, delimiter string, opts SplitOptions) ([]string, error) {
	if err := s.checkLength(subject); err != nil {
		return nil, err
	}
	re, err := anchored(delimiter)
	if err != nil {
		return nil, err
	}

	var out []string
	pieces := 0
	emit := func(piece string) {
		pieces++
		if opts.DropEmpty && piece == "" {
			return
		}
		out = append(out, piece)
	}

	start := 0
	for i := 0; i < len(subject); {
		end, ok, err := s.Atomic(subject, i)
		if err != nil {
			return nil, err
		}
		if ok {
			i = end
			continue
		}
		if s.isCloser(subject[i], s.brackets) {
			return nil, unmatched(subject, i)
		}
		if opts.Limit <= 0 || pieces < opts.Limit-1 {
			if loc := re.FindStringIndex(subject[i:]); loc != nil && loc[1] > 0 {
				emit(subject[start:i])
				if opts.KeepDelimiters {
					out = append(out, subject[i:i+loc[1]])
				}
				i += loc[1]
				start = i
				continue
			}
		}
		i++
	}
	emit(subject[start:])
	return out, nil
}
