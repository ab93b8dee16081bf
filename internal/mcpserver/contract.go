package mcpserver

// MetadataFormatContract describes the source format of a post.
const MetadataFormatContract = `# Post Source Format

A post is a UTF-8 text file with the content extension (default ` + "`.md`" + `)
anywhere under the content directory. It has three parts, in order:

1. A YAML metadata block: one flat mapping of scalar keys to scalar values.
2. One blank line (a line that is empty or whitespace only).
3. The Markdown body, rendered with GitHub Flavored Markdown and footnotes.

There are no ` + "`---`" + ` fences. The first blank line ends the metadata.

## Recognized keys

| key         | required | type                         | meaning                          |
|-------------|----------|------------------------------|----------------------------------|
| date        | yes      | timestamp or date            | publication date; sort key       |
| title       | no       | string                       | post heading and listing text    |
| subtitle    | no       | string                       | shown as "title: subtitle"       |
| published   | no       | boolean (default false)      | drafts are hidden outside debug  |

Other keys are kept and exposed as extra fields.

## Identity

The identity of a post is its path relative to the content directory with
the extension removed and forward slashes (` + "`2013/launch.md`" + ` becomes
` + "`2013/launch`" + `). Its page is served at ` + "`/blog/<identity>/`" + `.

## Example

` + "```" + `
date: 2013-06-01
title: Launch
subtitle: First steps
published: true

We are *live*.
` + "```" + `
`
