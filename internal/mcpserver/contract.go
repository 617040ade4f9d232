package mcpserver

// NoteFormatContract describes the canonical Markdown format of the
// reference notes that tag images. LLM consumers should follow it when
// creating or editing notes.
const NoteFormatContract = `# Othala Reference Note Contract

Every reference note stored in Othala MUST follow this structure.

## Structure

` + "```" + `markdown
---
image: "aurora.png"                 # REQUIRED – image filename, kept verbatim
author: "Jane Doe"                  # REQUIRED key – value may be empty ("")
tags: ["travel", "night"]           # REQUIRED key – flow-style YAML list
created: "2026-08-25"               # REQUIRED – ISO-8601 date, quoted
---

![[aurora.png|600]]

## Notes

Free-form Markdown describing the image.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "`" + `---` + "`" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **Tags are normalized:** lowercase, at least 2 characters, only letters,
   digits, underscores and hyphens (e.g. ` + "`" + `golden-hour` + "`" + `, ` + "`" + `b_w` + "`" + `). A leading
   ` + "`" + `#` + "`" + ` is stripped before storing.
3. **Inline tags** in the body use the ` + "`" + `#tag` + "`" + ` marker and count toward usage
   the same as frontmatter tags.
4. **The embed** uses wiki syntax with a display width:
   ` + "`" + `![[filename.png|600]]` + "`" + `. The target is the image filename as stored.
5. **Note paths** live under the configured default folder (default
   ` + "`" + `Image Library/` + "`" + `), named after the image with its extension swapped
   for ` + "`" + `.md` + "`" + ` and unsafe filename characters replaced by underscores.
6. **File paths** use forward slashes and UTF-8 encoding.
7. **Existing notes are never overwritten.** Creating a note for an image
   that already has one is an error.

## Images

- Import images via the ` + "`" + `import_image` + "`" + ` tool. It returns an ` + "`" + `embed` + "`" + ` field
  ready to paste into a note body.
- Imported images are stored in the vault's ` + "`" + `images/` + "`" + ` directory (flat, no
  sub-folders); images elsewhere in the vault are recognized too.
- Supported formats: png, jpg, jpeg, gif, webp, bmp, svg.
- Tag an image with the ` + "`" + `tag_image` + "`" + ` tool rather than writing the note by
  hand; the tool derives the path, renders this format and adopts unknown
  tags into the vocabulary.

## Example

` + "```" + `markdown
---
image: "glacier lagoon.jpg"
author: "Ragnar"
tags: ["travel", "winter", "water"]
created: "2026-08-25"
---

![[glacier lagoon.jpg|600]]

## Notes

Shot at dawn on the south coast. The #winter light lasted minutes.
` + "```" + `
`
