package mcpserver

// UsageURI identifies the usage guide resource.
const UsageURI = "vault://usage"

// UsageGuide documents path conventions and tool behaviour for agents.
const UsageGuide = `# Vault usage guide

## Paths

- Paths are relative to the vault root and use forward slashes: ` + "`" + `Projects/roadmap.md` + "`" + `.
- Never start a path with ` + "`" + `/` + "`" + `, and never use ` + "`" + `..` + "`" + ` or empty segments (` + "`" + `a//b` + "`" + `).
- Directory arguments of list_dir and list_files may end with ` + "`" + `/` + "`" + `; "" is the root.
- create_directory takes the folder name without a trailing slash: ` + "`" + `Notes` + "`" + `, not ` + "`" + `Notes/` + "`" + `.

## Finding things

- find_files ranks file paths against a name. Exact filename stems rank above
  prefixes, prefixes above substrings, substrings above fuzzy (in-order letter) matches.
  Use it before read_file when you are unsure of a name.
- search greps note contents line by line (Markdown files by default). Queries are literal
  unless regex=true; matching ignores case unless case_sensitive=true. Each match
  carries the line number and the lines directly before and after it.
- A file that cannot be read is skipped; a folder that cannot be listed is left out.
  Results may therefore be partial on a flaky vault.

## Writing

- write_file defaults to mode=create and refuses to replace an existing file.
  Use mode=overwrite to replace, mode=append to add to the end.
- read_file returns a checksum. Pass it as if_match to write_file to make sure
  nobody changed the file in between.
- Missing parent folders are created automatically.

## Deleting

- delete_file and delete_folder need confirm=true.
- Without permanent=true files are moved to ` + "`" + `.trash-http-mcp/` + "`" + ` and can be restored with move_file.
- The vault cannot remove empty folders; they remain after delete_folder.

## Freshness

The filename index behind find_files is cached for about a minute and refreshed
after every change made through these tools. Changes made outside may take up
to that long to appear. search always reads the vault directly.
`
