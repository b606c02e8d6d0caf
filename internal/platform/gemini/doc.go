// Package gemini implements generation.Generator on Google's Gemini API.
//
// The prompt is a text/template rendered from generation.PromptData. A
// built-in template is embedded in the binary and can be replaced with a
// file named by the llm.prompt_template_path setting. Calls that fail at the
// transport level are retried with exponential backoff and jitter; safety
// blocks and empty responses fail immediately.
package gemini
