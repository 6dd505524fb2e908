// Package history resolves the creation date of a tracked file by walking
// backward through its renames.
//
// A plain "first commit touching this path" query stops at the most recent
// rename, because history before it is attached to the old path. The
// Resolver asks its Querier for the earliest commit touching the path,
// inspects that single commit with rename detection enabled and, when the
// commit renamed the file, repeats the search for the old path bounded by the
// rename commit. The walk ends at the commit that added or copied the file.
package history
