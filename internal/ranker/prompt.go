package ranker

const systemPrompt = `You are a world class journalist & researcher, you are extremely good at finding the most relevant articles to a certain topic.`

const userTemplate = `%s

Above is the list of search results for the query %q.
Please choose the best %d articles from the list. Return ONLY the urls of the chosen articles, best first, as {"urls": [...]}. Do not include anything else.`

const schemaTemplate = `{
	"type": "object",
	"properties": {
		"urls": {
			"type": "array",
			"items": {"type": "string"},
			"minItems": 1,
			"maxItems": %d
		}
	},
	"required": ["urls"],
	"additionalProperties": false
}`
