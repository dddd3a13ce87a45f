package config

// FindInForTest exposes findIn for testing.
var FindInForTest = findIn
