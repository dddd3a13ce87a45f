// Package templating renders the starter files committed into a freshly
// provisioned repository. It uses valyala/fasttemplate with configurable
// delimiters (default "{{" and "}}").
//
// The built-in starter set (app.py, requirements.txt, packages.txt and
// README.md) is embedded in the binary. Engine.Dir points at a directory of
// overrides, and Engine.VarFiles at "KEY VALUE" files feeding extra
// variables. Starter returns the rendered files as ordered
// forge.FileUploadRequest values ready for upload.
package templating
