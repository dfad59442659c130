/*
Package compression unpacks zipped exchange uploads.

When the init step advertises zip=yes, 1C may ship a whole exchange (the
XML messages plus the import_files image tree) as a single zip archive
instead of uploading files one by one.

[Unzip] extracts such an archive into the upload root:

	refs, err := compression.Unzip(body, uploadRoot)

Every member path is sanitized the same way plain uploads are, so a
crafted archive cannot write outside the root. Directory entries are
skipped; file modes are not preserved.
*/
package compression
