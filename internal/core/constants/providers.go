package constants

// API path prefixes used to infer which provider family a client is talking to
const (
	PathAnthropicMessages = "/v1/messages"
	PathOpenAIChat        = "/v1/chat/completions"
	PathOpenAIResponses   = "/v1/responses"
	PathOpenAICompletions = "/v1/completions"
	PathGeminiPrefix      = "/v1beta/models/"
	PathGeminiCLIPrefix   = "/v1internal:"
)
