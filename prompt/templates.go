package prompt

// Category template bodies. Each has exactly one payload substitution
// point; the custom template adds the caller's instructions.

const analyzeTemplate = `You are an expert data analyst. Analyze the following JSON data and provide insights.

{{.Payload}}

Format your response as structured analysis with clear sections.
`

const classifyTemplate = `You are an expert classifier. Classify the following JSON data into appropriate categories.

JSON Data:
{{.Payload}}

Please provide:
1. Primary category
2. Secondary categories (if applicable)
3. Confidence level (1-10)
4. Reasoning for classification

Format your response as structured classification with clear categories.
`

// extractTemplate asks for a delimited entity/relationship list; its
// output format is what dataset.ParseGraph consumes.
const extractTemplate = `-Goal-
Given a text document that is potentially relevant to this activity, first identify all entities needed from the text in order to capture the information and ideas in the text.
Next, report all relationships among the identified entities.

-Steps-
1. Identify all entities. For each identified entity, extract the following information:
- entity_name: Name of the entity, capitalized
- entity_type: Suggest several labels or categories for the entity. The categories should not be specific, but should be as general as possible.
- entity_description: Comprehensive description of the entity's attributes and activities
Format each entity as ("entity"<|><entity_name><|><entity_type><|><entity_description>

2. From the entities identified in step 1, identify all pairs of (source_entity, target_entity) that are *clearly related* to each other.
For each pair of related entities, extract the following information:
- source_entity: name of the source entity, as identified in step 1
- target_entity: name of the target entity, as identified in step 1
- relationship_description: explanation as to why you think the source entity and the target entity are related to each other
- relationship_strength: a numeric score indicating strength of the relationship between the source entity and target entity
 Format each relationship as ("relationship"<|><source_entity><|><target_entity><|><relationship_description><|><relationship_strength>)

3. Return output in English as a single list of all the entities and relationships identified in steps 1 and 2. Use **<|>** as the list delimiter.

4. When finished, output <|COMPLETE|>

-Examples-
######################

Example 1:

text:
It was very dark, and the wind howled horribly around her, but Dorothy
found she was riding quite easily. After the first few whirls around,
and one other time when the house tipped badly, she felt as if she were
being rocked gently, like a baby in a cradle.

Toto did not like it. He ran about the room, now here, now there,
barking loudly; but Dorothy sat quite still on the floor and waited to
see what would happen.

Once Toto got too near the open trap door, and fell in; and at first
the little girl thought she had lost him. But soon she saw one of his
ears sticking up through the hole, for the strong pressure of the air
was keeping him up so that he could not fall. She crept to the hole,
caught Toto by the ear, and dragged him into the room again, afterward
closing
------------------------
output:
("entity"<|>DOROTHY<|>CHARACTER, PERSON<|>Dorothy is a character who experiences a dark and windy environment, feels as if being rocked gently, and actively participates in rescuing Toto)
<|>
("entity"<|>TOTO<|>CHARACTER, ANIMAL<|>Toto is Dorothy's dog who dislikes the situation, runs around barking, and accidentally falls into a trap door but is saved by Dorothy)
<|>
("entity"<|>TRAP DOOR<|>OBJECT<|>The trap door is an opening through which Toto falls, but the air pressure prevents him from falling completely)
<|>
("relationship"<|>DOROTHY<|>TOTO<|>Dorothy rescues Toto from the trap door, showing a caring relationship<|>9)
<|>
("relationship"<|>TOTO<|>TRAP DOOR<|>Toto falls into the trap door, which is a pivotal moment for his character in this scene<|>7)
<|>
("relationship"<|>DOROTHY<|>TRAP DOOR<|>Dorothy interacts with the trap door to rescue Toto, showing her proactive nature<|>8)
<|COMPLETE|>
#############################

-Real Data-
######################
text: {{.Payload}}
######################
output:
`

const summarizeTemplate = `You are an expert summarizer. Summarize the following JSON data concisely.

JSON Data:
{{.Payload}}

Please provide:
1. Executive summary (2-3 sentences)
2. Key points (bullet format)
3. Important metrics or numbers
4. Overall context

Format your response as a clear, concise summary.
`

const customTemplate = `Process the following JSON data according to the specific instructions provided.

JSON Data:
{{.Payload}}

Instructions:
{{.Instructions}}

Please follow the instructions exactly and provide a structured response.
`
