package cache

import "fmt"

const (
	testKeyPrefix   = "ielts:test"
	sessionLockBase = "ielts:lock:session"
)

// TestKey caches a test definition by id.
func TestKey(testID uint) string {
	return fmt.Sprintf("%s:%d", testKeyPrefix, testID)
}

// TestSchemaKey caches the extracted question schema of one module.
func TestSchemaKey(testID uint, module string) string {
	return fmt.Sprintf("%s:%d:schema:%s", testKeyPrefix, testID, module)
}

// TestDerivedPattern matches the entries derived from a test, such as its
// schemas, but not the test itself.
func TestDerivedPattern(testID uint) string {
	return fmt.Sprintf("%s:%d:*", testKeyPrefix, testID)
}

// SessionLockKey names the mutation lock of a session.
func SessionLockKey(sessionID uint) string {
	return fmt.Sprintf("%s:%d", sessionLockBase, sessionID)
}
