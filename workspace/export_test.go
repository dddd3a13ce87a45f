package workspace

// AuthForTest exposes authFor for testing.
var AuthForTest = authFor
