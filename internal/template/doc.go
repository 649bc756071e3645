// Package template evaluates the placeholder language used in uploader
// profiles and extracts links from upload responses.
//
// A placeholder is {name} or {name:arg1|arg2}. Arguments may contain nested
// placeholders, which are evaluated first:
//
//	{base64:{filename}}
//	{regex:href="([^"]+)"|1}
//
// A backslash escapes {, }, | and itself; before any other character it is
// kept as is, so regular expressions such as \d need no extra escaping.
// A { that does not start a known function is literal text, which lets JSON
// and XML bodies be written without escaping. Inside arguments such literal
// braces must balance.
//
// Request-time functions:
//
//	{filename}        name reported to the endpoint
//	{input}           upload input (empty for text, source path for files)
//	{key}             hex of nonce and key of an encrypted upload
//	{random}          8 random hex characters; {random:a|b|c} picks one value
//	{guid}            random UUID
//	{base64:text}     standard base64 of text
//	{unixtime}        seconds since the epoch
//
// Response-time functions, available to extraction rules:
//
//	{response}            response body
//	{responseurl}         final URL after redirects
//	{header:name}         response header value
//	{json:path}           gjson path into the response, or {json:source|path}
//	{xml:xpath}           XPath into the response, or {xml:source|xpath}
//	{regex:pattern|group} submatch by index or name, whole match by default
package template
