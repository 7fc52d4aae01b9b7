package scanning

// checkScanPrompt is the shared prompt used by all LLM providers for scanning checks
const checkScanPrompt = `You are analyzing a Brazilian bank check (cheque). Carefully read all printed and handwritten text in the image and extract the following information:

1. **Bank**: the bank name or its three digit code printed at the top (e.g. "001", "Itaú", "Bradesco").

2. **Branch**: the branch number ("Agência").

3. **Check number**: the check number ("Cheque nº"), digits only.

4. **Client name**: the account holder printed on the check, or the signer if no holder is printed.

5. **Amount**: the numeric amount written in the box next to "R$". Brazilian checks use a comma as the decimal separator; return a plain number with a dot (e.g. 1250.50 for R$ 1.250,50).

6. **Due date**: only when the check is post-dated ("bom para" or "pré-datado" annotation). Convert it to ISO 8601 (YYYY-MM-DD). Leave it empty for a sight check. Do not use the issue date.

Return ONLY valid JSON in this exact format:
{
  "bank": "",
  "branch": "",
  "number": "",
  "client_name": "",
  "amount": 0.00,
  "due_date": ""
}

Important:
- The amount must be a number (not a string)
- If you cannot find a field, use an empty string for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// checkScanSystemPrompt primes chat-style models
const checkScanSystemPrompt = "You are an expert at reading Brazilian bank checks. You must carefully read all text in images, including handwriting, and extract accurate information."
