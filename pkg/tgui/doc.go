// Package tgui renders Telegram HTML messages.
//
// Builder assembles "cards": a bold title (optionally linked), key/value
// rows, free text and an italic footer. Everything passed as a plain string
// is escaped; values of type H are trusted as already-safe HTML.
package tgui
