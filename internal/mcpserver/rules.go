package mcpserver

// NoteRules describes what the account and note operations accept, so that
// assistants can shape their calls before hitting a validation error.
const NoteRules = `# notas rules

## Accounts

- Usernames are case-sensitive and must be unique.
- Passwords need at least 8 characters on one line, with at least one
  lowercase letter, one uppercase letter and one digit.
- Only one account is signed in at a time. Every note tool acts on that
  account; call ` + "`whoami`" + ` to see which one it is.

## Notes

- A note has an id, a title, a content body and a completed flag.
- Title and content are both required. Whitespace-only values are rejected,
  but accepted text is stored exactly as sent.
- New notes start as not completed. ` + "`toggle_note`" + ` flips the flag.
- Editing keeps the note's id, completed flag and position in the list.
- ` + "`search_notes`" + ` matches titles only, ignoring case.
- Deleting is permanent. ` + "`delete_note`" + ` requires ` + "`confirm: true`" + `;
  ask the user first.
`
