// Package structured provides the parsed request document used for POST
// bodies and field-selection specifications.
//
// Documents are backed by gjson; form-encoded bodies are converted into an
// equivalent JSON object with sjson so handlers see one shape regardless of
// how the client posted.
package structured
