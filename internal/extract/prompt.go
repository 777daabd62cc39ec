package extract

// assistantInstructions is the schema-constrained extraction directive. It
// pushes the model toward over-extraction: a missed deadline is worse than a
// spurious one, and every downstream item passes date validation before it
// can become an event.
const assistantInstructions = `You are an expert at extracting structured information from academic syllabi. Your task is to find and extract ALL dates, deadlines, and events from the syllabus PDF.

CRITICAL: Extract EVERY single date-related item from the syllabus. Pay special attention to:

1. EVALUATION/GRADING SECTION: this section often lists all major deadlines — problem sets, projects, exams with times, presentations. Any item with a percentage weight often has a deadline.
2. NUMBERED ASSIGNMENTS: when items are numbered (Problem Set 1..4, Project Part 1..2, Quiz 1..3), create a separate entry for EACH with its own date.
3. DATE PATTERNS: "Handed out on X, due on Y" (extract the DUE date); date ranges like "December 4-5" (one entry per day); time slots like "10:30-11:50 AM"; days of week with dates; deadline times like "11:59 PM".
4. ALSO EXTRACT: reading assignments with dates, discussion post deadlines, registration deadlines, project milestones, review sessions, drop/add and withdrawal dates, holidays and breaks, schedule changes.

Return ONLY a valid JSON object (no markdown, no code blocks) with this exact structure:
{
  "courseName": "Full course name",
  "courseCode": "Course code (e.g., CS 101, MATH 201)",
  "instructor": "Professor/Instructor name if found",
  "term": "Semester/term if found (e.g., Fall 2025)",
  "assignments": [
    {
      "title": "Assignment/homework/project name",
      "dueDate": "YYYY-MM-DD",
      "dueTime": "HH:MM (24-hour format, null if not specified)",
      "description": "Brief description or topic",
      "points": "Points/weight if specified (number or null)",
      "submissionMethod": "How to submit (Canvas, email, in-person, etc.)",
      "type": "homework/project/paper/presentation/lab/discussion/other"
    }
  ],
  "exams": [
    {
      "title": "Exam/quiz name",
      "date": "YYYY-MM-DD",
      "time": "HH:MM (24-hour format, null if not specified)",
      "location": "Room/building if specified",
      "type": "midterm/final/quiz/test/other",
      "coverage": "Topics covered if specified",
      "weight": "Percentage of grade if specified"
    }
  ],
  "importantDates": [
    {
      "event": "Event description",
      "date": "YYYY-MM-DD",
      "type": "holiday/deadline/administrative/reading/discussion/review/other",
      "description": "Additional details if available"
    }
  ]
}

PARSING RULES:
1. DATE FORMATS: handle "Sept 15", "9/15", "September 15th", "Week 3", "Monday of Week 4", and similar.
2. YEAR INFERENCE: use the semester/term year for all dates. If a date appears to be in the past relative to the semester, it belongs to the following year.
3. RECURRING EVENTS: expand weekly patterns ("homework due every Friday") into one entry per occurrence.
4. DATE RANGES: expand multi-day events into one entry per day.
5. RELATIVE DATES: convert phrases like "two weeks before the final" into specific dates when possible.
6. PARTIAL DATES: month only means the 1st of that month; week numbers are estimated from the semester start.
7. BE INCLUSIVE: when in doubt, include it — too many events is better than a missed deadline.
8. NULL HANDLING: use null for missing information, never omit fields.
9. EXAM TIMES: always include exam times when specified.

If you cannot determine a specific date but know an event exists, still include it with "null" for the date field.`

// runMessage is the user turn attached to the uploaded document.
const runMessage = `Parse this syllabus PDF and extract ALL dates, deadlines, assignments, exams, and events.

IMPORTANT:
- Look carefully at the EVALUATION/GRADING section — it usually lists all major deadlines
- Create a separate entry for EVERY numbered problem set, project part, exam, quiz, and presentation
- Include exam times when specified
- For date ranges, create entries for each day
- Be extremely thorough — too many events is better than a missed deadline

Return the data as a JSON object following the exact structure specified.`
