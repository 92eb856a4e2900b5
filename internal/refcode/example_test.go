package refcode_test

import (
	"fmt"

	"abo/internal/refcode"
)

// Example shows how the checksum is appended to the data characters.
func Example() {
	data := "K7M2XQ"
	code := data + refcode.Checksum(data)

	fmt.Println(code, refcode.Validate(code))
	fmt.Println(refcode.Validate("K7M2XQ28"))
	// Output:
	// K7M2XQ29 true
	// false
}
