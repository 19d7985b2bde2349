package auth

import (
	"fmt"
	"io"
	"strings"
)

// KaggleAccountURL is where API tokens are created
const KaggleAccountURL = "https://www.kaggle.com/settings/account"

// ShowTokenGuide prints how to obtain a Kaggle API token
func ShowTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "KAGGLE API TOKEN")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The Met open-access dataset is downloaded through the Kaggle API,")
	fmt.Fprintln(w, "which needs your Kaggle username and an API key.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Sign in at https://www.kaggle.com")
	fmt.Fprintf(w, "2. Open %s\n", KaggleAccountURL)
	fmt.Fprintln(w, "3. Under 'API', click 'Create New Token'")
	fmt.Fprintln(w, "4. Open the downloaded kaggle.json; it holds both values:")
	fmt.Fprintln(w, `     {"username":"your-name","key":"0123456789abcdef..."}`)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "You can either:")
	fmt.Fprintln(w, "  - run 'artscraper auth login' and paste the two values")
	fmt.Fprintf(w, "  - export %s and %s\n", UsernameEnv, KeyEnv)
	fmt.Fprintf(w, "  - keep kaggle.json in ~/.kaggle/ (or $%s)\n", ConfigDirEnv)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The key grants access to your Kaggle account. Do not share it.")
	fmt.Fprintln(w, rule)
}
