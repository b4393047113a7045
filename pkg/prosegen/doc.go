/*
Package prosegen generates plausible-looking filler text by sampling from
trigram frequency tables built over a real-language corpus.

A Generator draws an opening word from a weighted starter list, then grows
each sentence one word at a time by ranking the corpus continuations for the
two most recent words and picking among the top candidates with a rank-based
weighted random draw. Sentences are statistically independent; paragraphs are
just ordered collections of them.

The corpus lives behind the Store interface. SQLStore is the bundled SQLite
implementation and also owns ingestion, statistics, pruning and JSON
export/import of a trained corpus.
*/
package prosegen
