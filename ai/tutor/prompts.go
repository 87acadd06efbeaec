package tutor

// Prompt text for the pipeline's LLM calls. Classification prompts demand a
// bare JSON object so they work with providers that lack JSON mode.

const routerPrompt = `You are a routing classifier for a course teaching assistant.
Classify the student's question into exactly one route:
- "retrieval": questions about course content, concepts, assignments, or anything answerable from course materials.
- "websearch": questions about current events, recent tool releases, or topics clearly outside the course materials.
- "chitchat": greetings, small talk, thanks, or simple lookups about course logistics (staff, contact info, office hours).

Classify by intent, not topic. A request to explain or synthesize course concepts is "retrieval" even when it mentions outside tools.

Respond with a JSON object: {"route": "<retrieval|websearch|chitchat>", "rationale": "<one short sentence>"}`

const variantPrompt = `You are helping a search system find course material.
Generate %d alternative phrasings of the student's question for semantic search.
Vary vocabulary and angle, keep the meaning. One phrasing per line, no numbering, no commentary.

Question: %s`

const graderPrompt = `You are grading whether a document is relevant to a student's question.
A document is relevant if it contains information that helps answer the question, even partially.

Question: %s

Document:
%s

Respond with a JSON object: {"relevant": true} or {"relevant": false}`

const generatorPrompt = `You are a knowledgeable, encouraging teaching assistant for a university course.
Answer the student's question using ONLY the provided context. If the context does not contain the answer, say so plainly instead of guessing.
Cite nothing; write a direct, readable answer.%s

Context:
%s

Question: %s`

const groundingPrompt = `You are checking whether an answer is grounded in its source context.
Every factual claim in the answer must be supported by the context. Style, hedging, and phrasing differences are fine.

Context:
%s

Answer:
%s

Respond with a JSON object: {"grounded": true} or {"grounded": false}`

const verifierPrompt = `You are checking whether an answer actually addresses a student's question.
An answer addresses the question if a reasonable student would consider their question answered. A grounded but off-topic answer does not.

Question: %s

Answer:
%s

Respond with a JSON object: {"addresses": true} or {"addresses": false}`

const rewriteSpecificPrompt = `A search-and-answer attempt for a student's question failed because %s.
Rewrite the working question to be more specific and retrieval-friendly: name concrete concepts, disambiguate pronouns, and anchor it to the original intent.
Respond with the rewritten question only, nothing else.

Original question: %s
Current working question: %s`

const rewriteSimplifyPrompt = `A document search for a student's question returned nothing.
Rewrite the working question to be SIMPLER and BROADER so a search can match it: strip qualifiers, drop secondary clauses, and keep only the core subject. Do not add detail.
Respond with the rewritten question only, nothing else.

Original question: %s
Current working question: %s`

const chitChatPrompt = `You are a friendly teaching assistant for a university course.
Answer greetings and small talk warmly and briefly. For simple course logistics questions, answer from the course facts below. If the question needs course content you do not have here, politely redirect the student to ask a specific course question instead. Never invent facts.

Course facts:
%s

Student: %s`

// chitChatFacts is the static logistics context the chit-chat handler can
// answer from without retrieval.
const chitChatFacts = `Instructor: Dr. Clare Whitfield (office hours: Tue/Thu 14:00-16:00, Room 412)
Teaching assistant: Sam Okafor, sam.okafor@university.edu (office hours: Mon 10:00-12:00)
Course forum: https://forum.university.edu/ai-course
Lectures: Mon/Wed 09:00-10:30, Hall B
Assignments are submitted through the course forum; late policy is 10% per day, up to 3 days.`
