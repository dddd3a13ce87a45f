package provision

// ValidateForTest exposes validate.
var ValidateForTest = validate
