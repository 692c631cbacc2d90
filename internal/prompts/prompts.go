// Package prompts holds the templates sent to the generative model. The
// structured stages instruct the model to answer with a JSON object matching
// the schema the caller validates against.
package prompts

import "fmt"

const seedQuestions = `You are a curious student at a specified education level and are learning about a particular area of study. Your goal is to generate %d diverse questions you would want to ask while learning about this subject. The questions should reflect knowledge that cannot be easily found by large language models and require expertise in the field. Additionally, the questions should be appropriate for the student's education level and should not involve concepts that are too advanced.

Area: %s
Education level: %s

Respond with a JSON object of the form {"questions": ["...", "..."]} containing exactly %d questions.`

// SeedQuestions renders the stage-1 prompt.
func SeedQuestions(area, level string, count int) string {
	return fmt.Sprintf(seedQuestions, count, area, level, count)
}

const conceptExtraction = `Please identify key concepts in the following question. Each concept should be a noun in the relevant area, listed in singular form if countable.

Question: %s
Education level: %s
Area: %s

Respond with a JSON object of the form {"concepts": ["...", "..."]}.`

// ConceptExtraction renders the stage-2 prompt.
func ConceptExtraction(question, level, area string) string {
	return fmt.Sprintf(conceptExtraction, question, level, area)
}

const summary = `You are a summary generator. The students are currently studying %s at the %s level and have asked a question. You have access to reference information from Wikipedia. Your task is to condense this information into a single, clear paragraph that highlights the key points and aids the students in better understanding their question.

Reference Wikipedia Information:
%s

Student Question: %s`

// Summary renders the summarization prompt over retrieved chunks.
func Summary(area, level, reference, question string) string {
	return fmt.Sprintf(summary, area, level, reference, question)
}

const quizGeneration = `You are a quiz generator. The students are currently studying %s at the %s level and have asked a question. Your task is to create %d quizzes that help the student better understand the question. You have access to summarized reference information from Wikipedia. The quizzes should accurately reflect the reference information, and the correct answer must be well-supported by it. Each quiz consists of one question and %d options; the correct answer must always be the FIRST option. The difficulty should align with the knowledge and reasoning complexity appropriate for %s education.

Reference Wikipedia Information:
%s

Student Question: %s

Respond with a JSON object of the form {"quizzes": [{"question": "...", "options": ["correct answer", "wrong", "wrong", "wrong"]}]} containing exactly %d quizzes, each with exactly %d options and the correct answer first.`

// QuizGeneration renders the quiz-generation prompt.
func QuizGeneration(area, level, summaryText, question string, quizzes, options int) string {
	return fmt.Sprintf(quizGeneration,
		area, level, quizzes, options, level, summaryText, question, quizzes, options)
}

const evaluation = `A student studying %s at the %s level is asking a question: "%s". A quiz set has been created to help the student gain a better understanding of this topic, with the correct answer always being the first option. Please evaluate the quality of this quiz set, assigning a score from 1 to 5 per criterion for the entire set. Base your evaluation on whether the quizzes accurately reflect the reference information from Wikipedia and whether the correct answers are well-supported by it. Be strict: give low scores to quizzes that do not reflect the reference information, as correctness cannot be verified without a reliable source.

Criteria:
1. Educational Value: will students learn by taking these quizzes?
2. Diversity: do the quizzes cover a broad range of topics, or all the same concept?
3. Area Relevance: are the quizzes tailored to the question and the subject area?
4. Difficulty Appropriateness: do the quizzes match the student's education level?
5. Comprehensiveness: do the quizzes cover the depth and breadth of the topic?

Reference Wikipedia information:
%s

Quiz set:
%s

Respond with a JSON object of the form {"Educational Value": score, "Diversity": score, "Area Relevance": score, "Difficulty Appropriateness": score, "Comprehensiveness": score} with integer scores from 1 to 5.`

// Evaluation renders the LLM-as-judge prompt.
func Evaluation(area, level, question, reference, quizSet string) string {
	return fmt.Sprintf(evaluation, area, level, question, reference, quizSet)
}
