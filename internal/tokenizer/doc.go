// Package tokenizer splits shorthand expressions without breaking quoted
// strings, bracketed regions or custom atomic tokens, and builds parenthesis
// trees from them.
//
// A Scanner is configured once with the bracket kinds, quote characters and
// custom matchers that count as atomic. Atomic regions are never split and
// never searched for delimiters:
//
//	s := tokenizer.New(tokenizer.Options{
//		Brackets: tokenizer.Round | tokenizer.Square,
//		Quotes:   tokenizer.DefaultQuotes,
//	})
//	parts, err := s.Split("a=1,f(b,c)='x,y'", `,`, tokenizer.SplitOptions{})
//	// parts: ["a=1", "f(b,c)='x,y'"]
//
// ParseTree turns round-bracket groups into nested Group fragments:
//
//	frags, err := s.ParseTree("a=1,(b=2|c=3)", tokenizer.TreeOptions{})
//	// frags: [Leaf("a=1,"), Group{Leaf("b=2|c=3")}]
//
// Regular expressions used for delimiters and matchers come from a single
// process-wide registry (see Pattern), so compiling the same expression twice
// costs nothing and the registry is safe for concurrent use.
package tokenizer
