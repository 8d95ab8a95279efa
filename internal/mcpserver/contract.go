package mcpserver

// EntryFormatContract describes the daily entry format that LLM consumers
// should follow when reading or appending to the journal.
const EntryFormatContract = `# Daybook Entry Format Contract

The journal holds one Markdown document per day. Tools create and edit
entries for you; this contract explains what they produce.

## Location

- Entries live at ` + "`" + `yyyy/MM MonthName/yyyy.MM.dd.md` + "`" + `, e.g. ` + "`" + `2019/04 April/2019.04.25.md` + "`" + `.
- The file name is the entry's identity: its date. Files with other names are ignored.
- Compiled documents live in ` + "`" + `Compiled/` + "`" + ` and are named ` + "`" + `yyyy.MM.dd-yyyy.MM.dd.md` + "`" + `.

## Structure

` + "```" + `markdown
---
tags:
  - travel
  - work
readme: 5/2/2019
---

# Thursday, April 25, 2019

First paragraph of the day.

## Ideas

Another section.
` + "```" + `

## Rules

1. **Metadata block is optional.** When present it is delimited by ` + "`" + `---` + "`" + ` lines.
2. **tags** is a list of strings. New entries without tags get ` + "`" + `(untagged)` + "`" + `.
3. **readme** is a reminder date in ` + "`" + `M/d/yyyy` + "`" + ` form. When appending you may pass
   a relative expression such as ` + "`" + `2 weeks` + "`" + `, ` + "`" + `1 month` + "`" + ` or ` + "`" + `3 days` + "`" + `; it is
   resolved against the entry's date before it is stored.
4. **Headers** start with 1 to 6 ` + "`" + `#` + "`" + ` followed by a space. The date header
   (` + "`" + `# Monday, January 2, 2006` + "`" + ` layout) is kept first in the body.
5. **Appending** without a header adds text under the date header; with a header
   the text goes under that header, which is created at the end if missing.
6. Separate paragraphs with a blank line. Encoding is UTF-8.
7. **Moving** an entry to another day keeps its body and date header as
   written; a reminder keeps its absolute date.

## Tags

- Renaming a tag rewrites only the metadata block of affected entries.
- Use the dry-run option to see which entries would change.
`
