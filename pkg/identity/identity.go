// pkg/identity/identity.go
package identity

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/labstack/echo/v4"
)

// FromRequest derives the opaque viewer identity token for a request. This is
// the only place the client address is read; everything past this boundary
// sees only the digest.
func FromRequest(c echo.Context) string {
	sum := sha256.Sum256([]byte(c.RealIP()))
	return hex.EncodeToString(sum[:])
}
