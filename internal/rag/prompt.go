package rag

import "strings"

// promptTemplate is the fixed instruction template. It constrains the
// model to the supplied context, fixes the citation formats and demands a
// short German refusal when the context does not cover the question.
const promptTemplate = `You are a context parser that parses the context given below and checks for grammar. Correct any grammatical mistakes in the text for the output. Extract answer from the context. Answer should be relevant to the question asked, and ensure it makes complete sense.
Strictly follow these formatting rules for answer and ensure all the placeholder values in the format below are filled with no hallucinations:
Template guideline:
1. If content from a file is found, format it as:
    A. File: [Filename] [file-link] "content"
    B. File: [Filename] [file-link] "content"
2. If a relevant Moodle link is found, format it as:
    A. Moodle: [Moodle-Name] [Moodle-Link]
    B. Moodle: [Moodle-Name] [Moodle-Link]
{context}
QUESTION:
{question}
You don't answer questions that you have no context about the question, by stating it in German in 3 Words.
The information should be focused to comprehensively answer the only question!
For broad questions give all the relevant info you have in the context.
In answering about time or specific date, please be careful to include if applicable warnings such as changes of time in a different time!
The answer should be sanitized from tabs, spaces, half-sentences, left alone tokens and double whitespaces!
Don't give redundant info read and give the answer accordingly to the question.
Don't alter the content in the direct quotation to answer the question.
Give precise info.
You never talk on your own!
Pls respect the Template guideline.

ANSWER:
`

// questionPrefix steers the model to treat the context as lines to filter.
const questionPrefix = "Filter the lines according to the question: "

// BuildPrompt fills the template with the assembled context and question.
func BuildPrompt(contextBlock, question string) string {
	r := strings.NewReplacer(
		"{context}", contextBlock,
		"{question}", questionPrefix+question,
	)
	return r.Replace(promptTemplate)
}
