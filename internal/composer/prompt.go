package composer

const systemPrompt = `You are a world class journalist and twitter influencer.`

const userTemplate = `%s

You are a world class journalist and twitter influencer. Use the summaries above to create a twitter thread about %s.
Please write a viral twitter thread about %s using the text above, follow all rules below:
1/ Make sure the content is engaging, informative with good data
2/ Make sure the content is not too long, it should not be more than 4-7 tweets each with a max length of 500 characters.
3/ The content should address the %s topic very well
4/ The content needs to be viral, and get at least 1000 likes
5/ The content needs to be written in a way that is easy to read and understand, you can use bold and italic text formatting to improve readability
6/ The content needs to give audience actionable advice & insights
7/ At the end add one additional tweet with a Call to Action to follow

Return the thread as {"posts": ["first tweet", "second tweet", ...]}.`

const schemaDoc = `{
	"type": "object",
	"properties": {
		"posts": {
			"type": "array",
			"items": {"type": "string", "minLength": 1},
			"minItems": 1,
			"maxItems": 8
		}
	},
	"required": ["posts"],
	"additionalProperties": false
}`
